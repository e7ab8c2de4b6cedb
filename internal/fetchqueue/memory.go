package fetchqueue

import (
	"context"
	"sync"
)

const defaultCapacity = 1024

// Memory is a bounded in-process queue.
type Memory struct {
	ch        chan Request
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates a queue holding up to capacity requests.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Memory{
		ch:   make(chan Request, capacity),
		done: make(chan struct{}),
	}
}

func (q *Memory) Enqueue(_ context.Context, req Request) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- req:
		return nil
	default:
		return ErrFull
	}
}

func (q *Memory) Dequeue(ctx context.Context) (Request, error) {
	select {
	case req := <-q.ch:
		return req, nil
	case <-q.done:
		return Request{}, ErrClosed
	case <-ctx.Done():
		return Request{}, ctx.Err()
	}
}

func (q *Memory) Depth(context.Context) (int, error) {
	return len(q.ch), nil
}

// Close stops accepting requests and wakes blocked consumers.
func (q *Memory) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
