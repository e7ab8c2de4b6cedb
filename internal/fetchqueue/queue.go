// Package fetchqueue carries deferred contact detail-fetch requests from the
// reconciler to whatever fetches full contacts from the server.
package fetchqueue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// BatchSize is the most contact IDs a single request may carry.
const BatchSize = 15

var (
	ErrFull   = errors.New("fetch queue is full")
	ErrClosed = errors.New("fetch queue is closed")
)

// Request asks for the full detail of up to BatchSize contacts of one user.
type Request struct {
	UserID     string   `json:"user_id"`
	ContactIDs []string `json:"contact_ids"`
}

// Queue is a FIFO of detail-fetch requests.
type Queue interface {
	// Enqueue adds a request without waiting for room.
	Enqueue(ctx context.Context, req Request) error
	// Dequeue blocks until a request is available or ctx is done.
	Dequeue(ctx context.Context) (Request, error)
	Depth(ctx context.Context) (int, error)
	Close() error
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end:end])
	}
	return out
}

// BuildFromDSN returns the queue backend named by dsn's scheme. An empty dsn
// selects the in-memory backend.
func BuildFromDSN(dsn string, capacity int) (Queue, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewMemory(capacity), nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse fetch queue dsn: %w", err)
	}
	switch scheme := strings.ToLower(parsed.Scheme); scheme {
	case "memory", "mem", "inmem":
		return NewMemory(capacity), nil
	case "redis", "rediss":
		return NewRedis(parsed)
	default:
		return nil, fmt.Errorf("unsupported fetch queue scheme: %q", scheme)
	}
}
