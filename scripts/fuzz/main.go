// Fuzz runner for fleetglint.
//
// Runs every fuzz target for FUZZ_TIME (default 30s) and writes a summary to
// target/reports/fuzz.txt. FUZZ_ONLY restricts the run to targets whose name
// contains the given substring. Exits non-zero when a target finds a failing
// input.
//
// Usage:
//
//	go run ./scripts/fuzz
//	FUZZ_TIME=2m FUZZ_ONLY=Validate go run ./scripts/fuzz
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type target struct {
	Name string
	Pkg  string
}

var targets = []target{
	{Name: "FuzzValidate", Pkg: "./internal/ingest/"},
	{Name: "FuzzExpandEnvVars", Pkg: "./internal/config/"},
	{Name: "FuzzMaskToken", Pkg: "./internal/notify/"},
	{Name: "FuzzTruncate", Pkg: "./internal/command/"},
}

type outcome struct {
	target
	Elapsed  time.Duration
	Execs    int64
	PerSec   int64
	NewInput int
	OK       bool
	Log      string
}

var (
	execsRe = regexp.MustCompile(`execs:\s+(\d+)\s+\((\d+)/sec\)`)
	newRe   = regexp.MustCompile(`new interesting:\s+(\d+)`)
)

func main() {
	root := projectRoot()
	reports := filepath.Join(root, "target", "reports")
	if err := os.MkdirAll(reports, 0o755); err != nil {
		log.Fatalf("creating report directory: %v", err)
	}

	fuzzTime := envOr("FUZZ_TIME", "30s")
	selected := filter(targets, os.Getenv("FUZZ_ONLY"))
	if len(selected) == 0 {
		log.Fatalf("no fuzz target matches %q", os.Getenv("FUZZ_ONLY"))
	}

	fmt.Printf("fuzzing %d target(s), %s each\n\n", len(selected), fuzzTime)
	started := time.Now()
	var results []outcome
	failed := 0
	for _, t := range selected {
		fmt.Printf("--- %s (%s)\n", t.Name, t.Pkg)
		o := fuzz(root, t, fuzzTime)
		results = append(results, o)
		if o.OK {
			fmt.Printf("ok   %s  %d execs (%d/sec), %d new\n\n", o.Name, o.Execs, o.PerSec, o.NewInput)
		} else {
			failed++
			fmt.Printf("FAIL %s\n\n", o.Name)
		}
	}

	path := filepath.Join(reports, "fuzz.txt")
	if err := os.WriteFile(path, []byte(render(started, fuzzTime, results)), 0o644); err != nil {
		log.Fatalf("writing fuzz report: %v", err)
	}
	fmt.Printf("report: %s\n", path)
	if failed > 0 {
		fmt.Printf("%d target(s) failed\n", failed)
		os.Exit(1)
	}
}

func filter(all []target, only string) []target {
	if only == "" {
		return all
	}
	var out []target
	for _, t := range all {
		if strings.Contains(t.Name, only) {
			out = append(out, t)
		}
	}
	return out
}

func fuzz(root string, t target, fuzzTime string) outcome {
	start := time.Now()
	var buf bytes.Buffer
	cmd := exec.Command("go", "test", "-run=^$", "-fuzz=^"+t.Name+"$", "-fuzztime="+fuzzTime, t.Pkg)
	cmd.Dir = root
	cmd.Stdout = io.MultiWriter(os.Stdout, &buf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &buf)
	err := cmd.Run()

	o := outcome{target: t, Elapsed: time.Since(start), Log: buf.String()}
	lines := strings.Split(o.Log, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.HasPrefix(lines[i], "fuzz: elapsed:") {
			continue
		}
		if m := execsRe.FindStringSubmatch(lines[i]); m != nil {
			o.Execs, _ = strconv.ParseInt(m[1], 10, 64)
			o.PerSec, _ = strconv.ParseInt(m[2], 10, 64)
		}
		if m := newRe.FindStringSubmatch(lines[i]); m != nil {
			o.NewInput, _ = strconv.Atoi(m[1])
		}
		break
	}

	// The fuzz timer can race test shutdown and report a deadline error
	// without a failing input; only a written corpus entry is a real failure.
	o.OK = err == nil ||
		(strings.Contains(o.Log, "context deadline exceeded") && !strings.Contains(o.Log, "Failing input written to"))
	return o
}

func render(at time.Time, fuzzTime string, results []outcome) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 72)
	fmt.Fprintf(&sb, "fleetglint fuzz report\n%s\n", rule)
	fmt.Fprintf(&sb, "generated  %s\n", at.Format(time.RFC1123))
	fmt.Fprintf(&sb, "go         %s\n", goVersion())
	fmt.Fprintf(&sb, "platform   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "fuzztime   %s per target\n%s\n\n", fuzzTime, rule)

	var total int64
	for _, o := range results {
		status := "PASS"
		if !o.OK {
			status = "FAIL"
		}
		total += o.Execs
		fmt.Fprintf(&sb, "%-4s  %-22s  %-20s  %12d execs  %4d new  %s\n",
			status, o.Name, o.Pkg, o.Execs, o.NewInput, o.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "\ntotal executions: %d\n", total)

	for _, o := range results {
		if o.OK {
			continue
		}
		fmt.Fprintf(&sb, "\n%s\n%s output\n%s\n%s\n", rule, o.Name, rule, strings.TrimRight(o.Log, "\n"))
	}
	return sb.String()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func goVersion() string {
	out, err := exec.Command("go", "version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func projectRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		log.Fatal("could not determine script directory")
	}
	for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		if dir == filepath.Dir(dir) {
			log.Fatal("could not find project root (no go.mod found)")
		}
	}
}
