// Package reconcile applies event batches to the local mail cache.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/mailsync/internal/codec"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/fetchqueue"
	"github.com/matheus3301/mailsync/internal/store"
	"go.uber.org/zap"
)

// Enqueuer schedules an out-of-band contact detail fetch.
type Enqueuer interface {
	Enqueue(ctx context.Context, req fetchqueue.Request) error
}

// Codecs serialize the nested payload values stored as blobs.
type Codecs struct {
	Address     codec.Codec[*event.Address]
	Addresses   codec.Codec[[]event.Address]
	Attachments codec.Codec[[]event.AttachmentMetadata]
	Cards       codec.Codec[[]event.Card]
	Strings     codec.Codec[[]string]
}

// JSONCodecs returns the default JSON codecs.
func JSONCodecs() Codecs {
	return Codecs{
		Address:     codec.JSON[*event.Address]{},
		Addresses:   codec.JSON[[]event.Address]{},
		Attachments: codec.JSON[[]event.AttachmentMetadata]{},
		Cards:       codec.JSON[[]event.Card]{},
		Strings:     codec.JSON[[]string]{},
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodecs replaces the blob codecs.
func WithCodecs(c Codecs) Option {
	return func(e *Engine) { e.codecs = c }
}

// WithFetchBatchSize overrides the contact detail-fetch chunk size.
func WithFetchBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fetchBatch = n
		}
	}
}

// Engine applies one event batch at a time per user, each inside a single
// write transaction.
type Engine struct {
	db         *store.DB
	guard      sendGuard
	fetch      Enqueuer
	codecs     Codecs
	fetchBatch int
	logger     *zap.Logger

	mu    sync.Mutex
	users map[string]*userLock
}

// New creates an engine. pending and fetch may be nil: no send is then ever
// considered in flight and detail fetches are dropped with a warning.
func New(db *store.DB, pending PendingSendQuery, fetch Enqueuer, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		db:         db,
		guard:      sendGuard{query: pending, logger: logger},
		fetch:      fetch,
		codecs:     JSONCodecs(),
		fetchBatch: fetchqueue.BatchSize,
		logger:     logger,
		users:      make(map[string]*userLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes one applied batch.
type Result struct {
	Applied        int
	Skipped        int
	FetchesQueued  int
	FetchesDropped int
}

// ApplyBatch reconciles b into userID's cache. Either every row change in the
// batch commits or none does. Contact detail fetches collected on the way are
// enqueued after commit and never fail the batch.
func (e *Engine) ApplyBatch(ctx context.Context, userID string, b *event.Batch) (*Result, error) {
	if b.Size() == 0 {
		return &Result{}, nil
	}
	unlock := e.lockUser(userID)
	defer unlock()

	start := time.Now()
	r := &run{
		ctx:    ctx,
		userID: userID,
		guard:  e.guard,
		codecs: e.codecs,
		batch:  e.fetchBatch,
		logger: e.logger.With(zap.String("user_id", userID), zap.String("event_id", b.EventID)),
	}
	err := e.db.WithTx(ctx, func(tx *store.Tx) error {
		r.tx = tx
		return r.apply(b)
	})
	if err != nil {
		var rerr *ReconciliationError
		if !errors.As(err, &rerr) {
			err = &ReconciliationError{UserID: userID, Stage: "commit", Err: err}
		}
		r.logger.Error("batch rolled back", zap.Error(err))
		return nil, err
	}

	res := &Result{Applied: r.applied, Skipped: r.skipped}
	res.FetchesQueued, res.FetchesDropped = e.enqueueFetches(ctx, userID, r.fetches)

	r.logger.Info("batch applied",
		zap.Int("items", b.Size()),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", res.Skipped),
		zap.Int("fetches", res.FetchesQueued),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (e *Engine) enqueueFetches(ctx context.Context, userID string, chunks [][]string) (queued, dropped int) {
	for _, ids := range chunks {
		if e.fetch == nil {
			e.logger.Warn("no fetch queue, dropping contact detail fetch", zap.Strings("contact_ids", ids))
			dropped++
			continue
		}
		if err := e.fetch.Enqueue(ctx, fetchqueue.Request{UserID: userID, ContactIDs: ids}); err != nil {
			e.logger.Warn("contact detail fetch not enqueued",
				zap.String("user_id", userID), zap.Strings("contact_ids", ids), zap.Error(err))
			dropped++
			continue
		}
		queued++
	}
	return queued, dropped
}

type userLock struct {
	sync.Mutex
	refs int // holders plus waiters, guarded by Engine.mu
}

// lockUser serializes batches of one user. Different users proceed in parallel.
// The entry is dropped once its last holder or waiter is done.
func (e *Engine) lockUser(userID string) func() {
	e.mu.Lock()
	l, ok := e.users[userID]
	if !ok {
		l = &userLock{}
		e.users[userID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.users, userID)
		}
		e.mu.Unlock()
	}
}
