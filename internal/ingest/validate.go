package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// MaxHostnameLength bounds the hostname an agent may register.
const MaxHostnameLength = 255

// TelemetryKeys are the extended payloads stored opaquely with a report.
var TelemetryKeys = map[string]bool{
	"disk_details":     true,
	"network_info":     true,
	"os_info":          true,
	"top_processes":    true,
	"event_logs":       true,
	"software":         true,
	"printers":         true,
	"windows_license":  true,
	"office_license":   true,
	"startup_programs": true,
	"shared_folders":   true,
	"usb_devices":      true,
	"windows_update":   true,
	"services":         true,
	"print_history":    true,
	"bandwidth_usage":  true,
	"app_usage":        true,
}

var (
	percentFields = []string{"cpu_usage", "ram_usage", "disk_usage"}
	sizeFields    = []string{"ram_total", "ram_used", "disk_total", "disk_used"}
)

// payload is the decoded top level of an agent report.
type payload map[string]json.RawMessage

// Validate checks and normalizes an agent report. Every offending field is
// listed in the returned *model.ValidationError. Extended telemetry is kept
// as raw JSON and only event_logs is looked at, to count error entries.
func Validate(raw []byte) (*model.ReportInput, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil || p == nil {
		return nil, model.NewValidationError("body", "must be a JSON object")
	}

	verr := &model.ValidationError{}
	in := &model.ReportInput{}

	hostname, ok := p.requiredString("hostname", verr)
	if ok {
		hostname = strings.TrimSpace(hostname)
		switch {
		case hostname == "":
			verr.Add("hostname", "must not be empty")
		case len(hostname) > MaxHostnameLength:
			verr.Add("hostname", fmt.Sprintf("must be at most %d bytes", MaxHostnameLength))
		}
	}
	in.Hostname = hostname

	in.Fields = model.MachineFields{
		IPAddress:  p.optionalString("ip_address", verr),
		MACAddress: p.optionalString("mac_address", verr),
		OSVersion:  p.optionalString("os_version", verr),
		Department: p.optionalString("department", verr),
	}

	r := &in.Report
	nums := map[string]*float64{
		"cpu_usage":  &r.CPUUsage,
		"ram_total":  &r.RAMTotal,
		"ram_used":   &r.RAMUsed,
		"ram_usage":  &r.RAMUsage,
		"disk_total": &r.DiskTotal,
		"disk_used":  &r.DiskUsed,
		"disk_usage": &r.DiskUsage,
	}
	for field, dst := range nums {
		if v, ok := p.requiredNumber(field, verr); ok {
			*dst = v
		}
	}
	for _, field := range percentFields {
		if v := *nums[field]; v < 0 || v > 100 {
			verr.Add(field, fmt.Sprintf("must be between 0 and 100, got %g", v))
		}
	}
	for _, field := range sizeFields {
		if v := *nums[field]; v < 0 {
			verr.Add(field, fmt.Sprintf("must not be negative, got %g", v))
		}
	}

	if v, ok := p.optionalNumber("cpu_cores", verr); ok {
		if v != math.Trunc(v) || v < 0 {
			verr.Add("cpu_cores", "must be a non-negative integer")
		} else {
			n := int(v)
			r.CPUCores = &n
		}
	}
	if v, ok := p.optionalNumber("cpu_temp", verr); ok {
		r.CPUTemp = &v
	}
	if v, ok := p.optionalNumber("uptime", verr); ok {
		r.Uptime = &v
	}
	r.CPUSpeed = p.optionalString("cpu_speed", verr)
	r.AntivirusStatus = p.optionalString("antivirus_status", verr)

	r.NetworkUp = true
	if v, ok := p["network_up"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &r.NetworkUp); err != nil {
			verr.Add("network_up", "must be a boolean")
		}
	}

	for key, v := range p {
		if !TelemetryKeys[key] || isNull(v) {
			continue
		}
		if r.Telemetry == nil {
			r.Telemetry = make(model.Telemetry)
		}
		r.Telemetry[key] = v
	}
	r.EventLogErrors = countEventLogErrors(p["event_logs"])

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return in, nil
}

func (p payload) requiredString(field string, verr *model.ValidationError) (string, bool) {
	v, ok := p[field]
	if !ok || isNull(v) {
		verr.Add(field, "is required")
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		verr.Add(field, "must be a string")
		return "", false
	}
	return s, true
}

func (p payload) optionalString(field string, verr *model.ValidationError) string {
	v, ok := p[field]
	if !ok || isNull(v) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		verr.Add(field, "must be a string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (p payload) requiredNumber(field string, verr *model.ValidationError) (float64, bool) {
	v, ok := p[field]
	if !ok || isNull(v) {
		verr.Add(field, "is required")
		return 0, false
	}
	return parseNumber(field, v, verr)
}

func (p payload) optionalNumber(field string, verr *model.ValidationError) (float64, bool) {
	v, ok := p[field]
	if !ok || isNull(v) {
		return 0, false
	}
	return parseNumber(field, v, verr)
}

func parseNumber(field string, v json.RawMessage, verr *model.ValidationError) (float64, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		verr.Add(field, "must be a number")
		return 0, false
	}
	return f, true
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

// countEventLogErrors counts Error and Critical entries in an event_logs
// array. Anything that is not an array of objects counts as zero.
func countEventLogErrors(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var entries []struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Level == "Error" || e.Level == "Critical" {
			n++
		}
	}
	return n
}
