package outbox

import (
	"context"
	"time"

	"github.com/matheus3301/mailsync/internal/store"
	"go.uber.org/zap"
)

// Reaper fails actions that have been running for longer than a timeout, so
// a crashed sender cannot hold a draft's guard forever.
type Reaper struct {
	db       *store.DB
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewReaper creates a reaper that checks every interval.
func NewReaper(db *store.DB, interval, timeout time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{db: db, logger: logger, interval: interval, timeout: timeout}
}

// Start begins the reaping loop.
func (r *Reaper) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx)
}

// Stop stops the loop and waits for it to exit.
func (r *Reaper) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Reaper) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Reap(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Reap runs one pass and returns how many actions it failed.
func (r *Reaper) Reap(ctx context.Context) int64 {
	n, err := r.db.FailStaleActions(ctx, time.Now().Add(-r.timeout), "timed out while running")
	if err != nil {
		r.logger.Error("failed to reap stale actions", zap.Error(err))
		return 0
	}
	if n > 0 {
		r.logger.Warn("stale actions failed", zap.Int64("count", n))
	}
	return n
}
