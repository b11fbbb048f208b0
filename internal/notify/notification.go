package notify

import "time"

// Priority ranks a notification for the UI
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Severity tags the visual treatment of a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a mapped, user-facing record derived from one inbound
// frame. IDs are generation-time-assigned and never reused within a session.
type Notification struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Priority  Priority  `json:"priority"`
	Severity  Severity  `json:"severity"`
	Toast     bool      `json:"toast"`
}
