package realtime

import "encoding/json"

// Frame is one inbound message on the realtime channel
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Known event types. The catalog is fixed: the full set is (re-)subscribed
// on every successful open, server-side subscriptions are not assumed to
// survive a reconnection.
const (
	EventProjectCreated     = "project_created"
	EventProjectDeleted     = "project_deleted"
	EventTestCaseCreated    = "testcase_created"
	EventTestCaseCompleted  = "testcase_completed"
	EventMDDProcessing      = "idatagenerator_mdd_processing"
	EventMDDUpdate          = "idatagenerator_mdd_update"
	EventMDDProcessed       = "idatagenerator_mdd_processed"
	EventDataProgress       = "idatagenerator_data_progress"
	EventRespondentComplete = "respondent_completed"
	EventError              = "error"
)

var catalog = []string{
	EventProjectCreated,
	EventProjectDeleted,
	EventTestCaseCreated,
	EventTestCaseCompleted,
	EventMDDProcessing,
	EventMDDUpdate,
	EventMDDProcessed,
	EventDataProgress,
	EventRespondentComplete,
	EventError,
}

// Catalog returns the fixed event-type catalog in subscription order
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// subscribeFrame is the outbound subscription request, one per catalog entry
type subscribeFrame struct {
	Type  string `json:"type"`
	Event string `json:"event"`
}
