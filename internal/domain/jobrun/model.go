package jobrun

import "time"

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type Trigger string

const (
	TriggerHTTP     Trigger = "http"
	TriggerSchedule Trigger = "schedule"
	TriggerCLI      Trigger = "cli"
)

// Event is one state transition of a job run.
type Event struct {
	RunID        string
	JobName      string
	Trigger      Trigger
	Status       Status
	Summary      any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
