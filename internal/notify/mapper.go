package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surveydesk/surveydesk/internal/realtime"
	"github.com/tidwall/gjson"
)

// mapping describes how one event type becomes a notification
type mapping struct {
	title    string
	priority Priority
	severity Severity
	toast    bool
	message  func(data []byte) string
}

// mappings is the fixed lookup table keyed by event type. Types absent
// from the table produce no notification, raw listeners still fire.
var mappings = map[string]mapping{
	realtime.EventProjectCreated: {
		title:    "New Project Created",
		priority: PriorityMedium,
		severity: SeverityInfo,
		toast:    true,
		message: func(data []byte) string {
			return fmt.Sprintf("Project %q has been created", str(data, "project_name", "Unknown"))
		},
	},
	realtime.EventProjectDeleted: {
		title:    "Project Deleted",
		priority: PriorityMedium,
		severity: SeverityWarning,
		toast:    true,
		message: func(data []byte) string {
			return fmt.Sprintf("Project %q has been deleted", str(data, "project_name", "Unknown"))
		},
	},
	realtime.EventTestCaseCreated: {
		title:    "Test Case Added",
		priority: PriorityLow,
		severity: SeverityInfo,
		toast:    false,
		message: func(data []byte) string {
			return fmt.Sprintf("Test case %q added to project %q",
				str(data, "testcase_name", "Unnamed"),
				str(data, "project_name", "Unknown"))
		},
	},
	realtime.EventTestCaseCompleted: {
		title:    "Test Case Completed",
		priority: PriorityMedium,
		severity: SeveritySuccess,
		toast:    true,
		message: func(data []byte) string {
			return fmt.Sprintf("Test case %q finished with status %s",
				str(data, "testcase_name", "Unnamed"),
				str(data, "status", "unknown"))
		},
	},
	realtime.EventMDDProcessing: {
		title:    "MDD Processing Started",
		priority: PriorityLow,
		severity: SeverityInfo,
		toast:    false,
		message: func(data []byte) string {
			return fmt.Sprintf("Processing MDD for project %q", str(data, "project_name", "Unknown"))
		},
	},
	realtime.EventMDDUpdate: {
		title:    "MDD Processing Update",
		priority: PriorityLow,
		severity: SeverityInfo,
		toast:    false,
		message: func(data []byte) string {
			return fmt.Sprintf("Project %q: %d%% processed",
				str(data, "project_name", "Unknown"),
				gjson.GetBytes(data, "progress").Int())
		},
	},
	realtime.EventMDDProcessed: {
		title:    "MDD Processing Completed",
		priority: PriorityMedium,
		severity: SeveritySuccess,
		toast:    true,
		message: func(data []byte) string {
			return fmt.Sprintf("MDD for project %q processed, %d variables found",
				str(data, "project_name", "Unknown"),
				gjson.GetBytes(data, "variables_count").Int())
		},
	},
	realtime.EventDataProgress: {
		title:    "Data Generation Progress",
		priority: PriorityLow,
		severity: SeverityInfo,
		toast:    false,
		message: func(data []byte) string {
			return fmt.Sprintf("%d of %d interviews generated",
				gjson.GetBytes(data, "completed").Int(),
				gjson.GetBytes(data, "total").Int())
		},
	},
	realtime.EventRespondentComplete: {
		title:    "Respondent Completed",
		priority: PriorityLow,
		severity: SeverityInfo,
		toast:    false,
		message: func(data []byte) string {
			return fmt.Sprintf("Respondent %s completed test case %q",
				str(data, "respondent_id", "unknown"),
				str(data, "testcase_name", "Unnamed"))
		},
	},
	realtime.EventError: {
		title:    "Processing Error",
		priority: PriorityHigh,
		severity: SeverityError,
		toast:    true,
		message: func(data []byte) string {
			return str(data, "message", "An unknown error occurred")
		},
	},
}

// Map converts an inbound frame to a notification. Event types outside the
// mapping table yield nil.
func Map(f realtime.Frame) *Notification {
	m, ok := mappings[f.Type]
	if !ok {
		return nil
	}

	ts, err := time.Parse(time.RFC3339, f.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	return &Notification{
		ID:        newID(f.Type),
		EventType: f.Type,
		Title:     m.title,
		Message:   m.message(f.Data),
		Timestamp: ts,
		Priority:  m.priority,
		Severity:  m.severity,
		Toast:     m.toast,
	}
}

// newID builds a session-unique notification id from the event type, the
// generation time and a random suffix.
func newID(eventType string) string {
	return fmt.Sprintf("%s-%d-%s", eventType, time.Now().UnixNano(), uuid.NewString()[:8])
}

// str extracts a string field with an explicit fallback for missing or
// empty values.
func str(data []byte, path, fallback string) string {
	if v := gjson.GetBytes(data, path); v.Exists() && v.String() != "" {
		return v.String()
	}
	return fallback
}
