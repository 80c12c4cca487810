package model

import "time"

// Event names pushed to real-time subscribers.
const (
	EventMachineUpdated = "machine:updated"
	EventReportNew      = "report:new"
	EventAlertNew       = "alert:new"
	EventCommandResult  = "command:result"
	EventScreenshotNew  = "screenshot:new"
)

// Event is one real-time push message.
type Event struct {
	Name      string    `json:"event"`
	Topic     string    `json:"topic"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"ts"`
}
