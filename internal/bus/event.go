package bus

import "time"

// Event kinds published inside the daemon.
const (
	// KindBatch carries a sync.BatchEnvelope waiting to be reconciled.
	KindBatch = "events.batch"
	// KindBatchApplied carries a BatchApplied after a batch commits.
	KindBatchApplied = "events.applied"
	// KindBatchFailed carries a BatchFailed after a batch rolls back.
	KindBatchFailed = "events.failed"

	KindActionQueued    = "outbox.queued"
	KindActionCompleted = "outbox.completed"

	KindStatusChanged = "session.status_changed"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// BatchApplied summarizes a committed batch.
type BatchApplied struct {
	UserID  string
	EventID string
	Applied int
	Skipped int
}

// BatchFailed reports a rolled back batch.
type BatchFailed struct {
	UserID  string
	EventID string
	Err     string
}

// ActionChanged reports an outgoing action entering or leaving the queue.
type ActionChanged struct {
	ID        string
	UserID    string
	MessageID string
	Kind      string
	Status    string
}
