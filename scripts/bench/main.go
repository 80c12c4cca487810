// Benchmark runner for fleetglint.
//
// Runs the benchmarks under ./internal/..., prints a condensed table and
// writes it together with the raw output to target/reports/bench.txt.
// BENCH_TIME sets -benchtime (default 3s), BENCH_FILTER sets -bench
// (default ".").
//
// Usage:
//
//	go run ./scripts/bench
//	BENCH_FILTER=Summary BENCH_TIME=10s go run ./scripts/bench
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// row is one parsed benchmark result line.
type row struct {
	Name     string
	NsOp     string
	BytesOp  string
	AllocsOp string
}

func main() {
	root := projectRoot()
	reports := filepath.Join(root, "target", "reports")
	if err := os.MkdirAll(reports, 0o755); err != nil {
		log.Fatalf("creating report directory: %v", err)
	}

	benchTime := envOr("BENCH_TIME", "3s")
	filter := envOr("BENCH_FILTER", ".")
	started := time.Now()

	fmt.Printf("benchmarks %q, benchtime=%s\n\n", filter, benchTime)
	var buf bytes.Buffer
	cmd := exec.Command("go", "test", "-run=^$", "-bench="+filter, "-benchmem", "-benchtime="+benchTime, "./internal/...")
	cmd.Dir = root
	cmd.Stdout = io.MultiWriter(os.Stdout, &buf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &buf)
	runErr := cmd.Run()

	rows := parse(buf.String())
	table := render(rows)
	fmt.Println()
	fmt.Print(table)

	var out strings.Builder
	rule := strings.Repeat("=", 72)
	fmt.Fprintf(&out, "fleetglint benchmark report\n%s\n", rule)
	fmt.Fprintf(&out, "generated  %s\n", started.Format(time.RFC1123))
	fmt.Fprintf(&out, "go         %s\n", goVersion())
	fmt.Fprintf(&out, "platform   %s/%s, %d CPUs\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	fmt.Fprintf(&out, "benchtime  %s\n%s\n\n", benchTime, rule)
	out.WriteString(table)
	fmt.Fprintf(&out, "\n%s\nraw output\n%s\n%s", rule, rule, buf.String())
	if runErr != nil {
		fmt.Fprintf(&out, "\n[ERROR] %v\n", runErr)
	}

	path := filepath.Join(reports, "bench.txt")
	if err := os.WriteFile(path, []byte(out.String()), 0o644); err != nil {
		log.Fatalf("writing bench report: %v", err)
	}
	fmt.Printf("\nreport: %s\n", path)
	if runErr != nil {
		os.Exit(1)
	}
}

// parse extracts "BenchmarkX-8  N  123 ns/op  45 B/op  2 allocs/op" lines.
func parse(output string) []row {
	var rows []row
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || !strings.HasPrefix(f[0], "Benchmark") {
			continue
		}
		r := row{Name: f[0]}
		for i := 2; i+1 < len(f); i += 2 {
			switch f[i+1] {
			case "ns/op":
				r.NsOp = f[i]
			case "B/op":
				r.BytesOp = f[i]
			case "allocs/op":
				r.AllocsOp = f[i]
			}
		}
		rows = append(rows, r)
	}
	return rows
}

func render(rows []row) string {
	if len(rows) == 0 {
		return "no benchmark results\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-40s %14s %10s %10s\n", "benchmark", "ns/op", "B/op", "allocs/op")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%-40s %14s %10s %10s\n", r.Name, r.NsOp, r.BytesOp, r.AllocsOp)
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
