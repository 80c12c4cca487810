// Package model defines all shared domain types for fleetglint.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// MachineStatus is the live liveness classification of a machine.
type MachineStatus string

const (
	StatusOnline  MachineStatus = "online"
	StatusWarning MachineStatus = "warning"
	StatusOffline MachineStatus = "offline"
)

// Machine is a managed endpoint that reports telemetry and receives commands.
type Machine struct {
	ID         string        `json:"id"`
	Hostname   string        `json:"hostname"`
	IPAddress  string        `json:"ip_address"`
	MACAddress string        `json:"mac_address,omitempty"`
	OSVersion  string        `json:"os_version,omitempty"`
	Department string        `json:"department"`
	Group      string        `json:"group,omitempty"`
	Label      string        `json:"label,omitempty"`
	Tags       string        `json:"tags,omitempty"`
	Token      string        `json:"-"`
	LastSeenAt time.Time     `json:"last_seen_at"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     MachineStatus `json:"status,omitempty"` // derived on read, never stored
}

// MachineFields carries the mutable identity fields presented by an agent.
// Empty values leave the stored value untouched on update.
type MachineFields struct {
	IPAddress  string
	MACAddress string
	OSVersion  string
	Department string
}

// Telemetry holds the extended agent payloads the core stores and returns
// without interpreting. Keys are the agent field names.
type Telemetry map[string]json.RawMessage

// Report is one telemetry snapshot from a machine.
type Report struct {
	ID              string    `json:"id"`
	MachineID       string    `json:"machine_id"`
	CPUUsage        float64   `json:"cpu_usage"`
	CPUCores        *int      `json:"cpu_cores,omitempty"`
	CPUSpeed        string    `json:"cpu_speed,omitempty"`
	CPUTemp         *float64  `json:"cpu_temp,omitempty"`
	RAMTotal        float64   `json:"ram_total"`
	RAMUsed         float64   `json:"ram_used"`
	RAMUsage        float64   `json:"ram_usage"`
	DiskTotal       float64   `json:"disk_total"`
	DiskUsed        float64   `json:"disk_used"`
	DiskUsage       float64   `json:"disk_usage"`
	NetworkUp       bool      `json:"network_up"`
	Uptime          *float64  `json:"uptime,omitempty"`
	AntivirusStatus string    `json:"antivirus_status,omitempty"`
	EventLogErrors  int       `json:"event_log_errors"`
	Telemetry       Telemetry `json:"telemetry,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReportInput is a validated, normalized agent payload.
type ReportInput struct {
	Hostname string
	Fields   MachineFields
	Report   Report
}

// AlertThreshold overrides the default trigger percentages for one machine.
type AlertThreshold struct {
	MachineID      string    `json:"machine_id,omitempty"`
	CPUThreshold   float64   `json:"cpu_threshold"`
	RAMThreshold   float64   `json:"ram_threshold"`
	DiskThreshold  float64   `json:"disk_threshold"`
	EventLogErrors bool      `json:"event_log_errors"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// DefaultThreshold returns the system defaults used when a machine has no override.
func DefaultThreshold() AlertThreshold {
	return AlertThreshold{
		CPUThreshold:   90,
		RAMThreshold:   85,
		DiskThreshold:  90,
		EventLogErrors: true,
	}
}

// AlertType tags a monitored condition.
type AlertType string

const (
	AlertCPUHigh       AlertType = "cpu_high"
	AlertRAMHigh       AlertType = "ram_high"
	AlertDiskHigh      AlertType = "disk_high"
	AlertEventLogError AlertType = "event_log_error"
	AlertOffline       AlertType = "offline"
)

// Label is the upper-case tag reported back to agents, e.g. "CPU_HIGH".
func (t AlertType) Label() string { return strings.ToUpper(string(t)) }

// Severity of an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an active or resolved monitoring condition. At most one unresolved
// alert exists per (machine, type).
type Alert struct {
	ID         string     `json:"id"`
	MachineID  string     `json:"machine_id"`
	Hostname   string     `json:"hostname,omitempty"`
	Type       AlertType  `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AlertFilter selects alerts for listing.
type AlertFilter struct {
	MachineID string
	Resolved  *bool
	Search    string
	Page      int
	Limit     int
}

// AlertPage is one page of a filtered alert listing.
type AlertPage struct {
	Data       []Alert `json:"data"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// CommandStatus is a state of the remote command state machine.
type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandExecuting CommandStatus = "executing"
	CommandCompleted CommandStatus = "completed"
	CommandFailed    CommandStatus = "failed"
)

// Command is a unit of remote work requested for one machine.
type Command struct {
	ID         string          `json:"id"`
	MachineID  string          `json:"machine_id"`
	Hostname   string          `json:"hostname,omitempty"`
	Action     string          `json:"action"`
	Params     json.RawMessage `json:"params,omitempty"`
	Status     CommandStatus   `json:"status"`
	Result     *string         `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ClaimedAt  *time.Time      `json:"claimed_at,omitempty"`
	ExecutedAt *time.Time      `json:"executed_at,omitempty"`
}

// Screenshot is an image artifact produced by a completed screenshot command.
type Screenshot struct {
	ID        string    `json:"id"`
	MachineID string    `json:"machine_id"`
	CommandID string    `json:"command_id,omitempty"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationConfig is the process-wide outbound notification setting.
type NotificationConfig struct {
	Enabled         bool      `json:"enabled"`
	LineToken       string    `json:"line_token"`
	CPUThreshold    float64   `json:"cpu_threshold"`
	RAMThreshold    float64   `json:"ram_threshold"`
	DiskThreshold   float64   `json:"disk_threshold"`
	NotifyOffline   bool      `json:"notify_offline"`
	NotifyEventLog  bool      `json:"notify_event_log"`
	CooldownMinutes int       `json:"cooldown_minutes"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// DefaultNotificationConfig returns the configuration used before an operator saves one.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		CPUThreshold:    90,
		RAMThreshold:    85,
		DiskThreshold:   90,
		NotifyOffline:   true,
		NotifyEventLog:  true,
		CooldownMinutes: 15,
	}
}

// Cooldown returns the configured cooldown window.
func (c NotificationConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

// Notification represents a structured alert message.
type Notification struct {
	AlertType string            `json:"alert_type"`
	Severity  string            `json:"severity"` // "info", "warning", "critical"
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	MachineID string            `json:"machine_id"`
	Hostname  string            `json:"hostname"`
	Timestamp time.Time         `json:"timestamp"`
	Resolved  bool              `json:"resolved"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// FleetSummary is the dashboard roll-up of the fleet.
type FleetSummary struct {
	TotalMachines    int     `json:"total_machines"`
	Online           int     `json:"online"`
	Warning          int     `json:"warning"`
	Offline          int     `json:"offline"`
	AvgCPU           float64 `json:"avg_cpu"`
	AvgRAM           float64 `json:"avg_ram"`
	AvgDisk          float64 `json:"avg_disk"`
	UnresolvedAlerts int     `json:"unresolved_alerts"`
	RecentAlerts     []Alert `json:"recent_alerts"`
}
