package api

import (
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/fetchqueue"
)

type ApplyBatchRequest struct {
	UserID string       `json:"user_id"`
	Batch  *event.Batch `json:"batch"`
	// Async returns once the daemon has queued the batch, before it is applied.
	// Queued is only reported when the batch is guaranteed to be applied.
	Async bool `json:"async,omitempty"`
}

type ApplyBatchResponse struct {
	Queued         bool `json:"queued,omitempty"`
	Applied        int  `json:"applied"`
	Skipped        int  `json:"skipped"`
	FetchesQueued  int  `json:"fetches_queued"`
	FetchesDropped int  `json:"fetches_dropped"`
}

type QueueActionRequest struct {
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
}

type QueueActionResponse struct {
	ID string `json:"id"`
}

type CompleteActionRequest struct {
	ID string `json:"id"`
	// Error marks the action failed when non-empty.
	Error string `json:"error,omitempty"`
}

type CompleteActionResponse struct{}

type NextContactFetchRequest struct {
	WaitMs int64 `json:"wait_ms,omitempty"`
}

type NextContactFetchResponse struct {
	Found   bool                `json:"found"`
	Request *fetchqueue.Request `json:"request,omitempty"`
}

type StatusRequest struct {
	// UserID selects whose row counts are reported. Empty skips them.
	UserID string `json:"user_id,omitempty"`
}

type StatusResponse struct {
	Session         string           `json:"session"`
	State           string           `json:"state"`
	StateSinceMs    int64            `json:"state_since_ms"`
	UptimeMs        int64            `json:"uptime_ms"`
	Rows            map[string]int64 `json:"rows"`
	FetchQueueDepth int              `json:"fetch_queue_depth"`
	BusDropped      int64            `json:"bus_dropped"`
}
