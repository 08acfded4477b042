package progress

import "time"

// Event types broadcast over the progress hub.
const (
	EventRunStart   = "run.start"
	EventRunLevel   = "run.level"
	EventRunSkip    = "run.skip"
	EventRunError   = "run.error"
	EventRunDone    = "run.done"
	EventMergeStart = "merge.start"
	EventMergeDone  = "merge.done"
)

// Event is one progress notification, serialized as a JSON line to
// every subscriber.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"runId,omitempty"`
	Source    string    `json:"source,omitempty"`
	LevelID   string    `json:"levelId,omitempty"`
	Processed int       `json:"processed,omitempty"`
	Skipped   int       `json:"skipped,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}
