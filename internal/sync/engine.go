// Package sync feeds event batches arriving on the bus into the
// reconciliation engine.
package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/matheus3301/mailsync/internal/bus"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/reconcile"
	"github.com/matheus3301/mailsync/internal/status"
	"go.uber.org/zap"
)

// BatchEnvelope is the payload of a bus.KindBatch event.
type BatchEnvelope struct {
	UserID string
	Batch  *event.Batch
}

// ErrStopped is returned by Submit once the engine has been stopped.
var ErrStopped = errors.New("ingestion stopped")

// Applier applies one batch for one user.
type Applier interface {
	ApplyBatch(ctx context.Context, userID string, b *event.Batch) (*reconcile.Result, error)
}

// Engine applies submitted batches and bus.KindBatch events in arrival order.
// A rolled back batch moves the session to DEGRADED; the next committed batch
// brings it back to READY.
type Engine struct {
	applier Applier
	bus     *bus.Bus
	machine *status.Machine
	buffer  int
	logger  *zap.Logger
	queue   chan BatchEnvelope
	cancel  context.CancelFunc
	done    chan struct{}

	mu      gosync.RWMutex
	stopped bool
}

// NewEngine creates a new ingestion engine. machine may be nil.
func NewEngine(applier Applier, b *bus.Bus, machine *status.Machine, buffer int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Engine{
		applier: applier,
		bus:     b,
		machine: machine,
		buffer:  buffer,
		logger:  logger,
		queue:   make(chan BatchEnvelope, buffer),
	}
}

// Start begins applying submitted batches and subscribes to inbound batches
// on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe(bus.KindBatch, e.buffer)
	// A batch already taken off a queue is finished even when ctx ends.
	applyCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case env := <-e.queue:
				e.apply(applyCtx, env)
			case evt := <-ch:
				e.handleEvent(applyCtx, evt)
			case <-ctx.Done():
				e.drain(applyCtx)
				return
			}
		}
	}()
}

// drain applies every batch Submit accepted before Stop.
func (e *Engine) drain(ctx context.Context) {
	for {
		select {
		case env := <-e.queue:
			e.apply(ctx, env)
		default:
			return
		}
	}
}

// Stop refuses new submissions, applies the ones already accepted and waits
// for the loop to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

// Submit queues a batch for asynchronous ingestion. It waits for room while
// ctx allows; a nil error means the batch will be applied.
func (e *Engine) Submit(ctx context.Context, userID string, b *event.Batch) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return ErrStopped
	}
	select {
	case e.queue <- BatchEnvelope{UserID: userID, Batch: b}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	env, ok := evt.Payload.(BatchEnvelope)
	if !ok {
		e.logger.Warn("unexpected batch payload", zap.String("kind", evt.Kind))
		return
	}
	e.apply(ctx, env)
}

func (e *Engine) apply(ctx context.Context, env BatchEnvelope) {
	if _, err := e.Ingest(ctx, env.UserID, env.Batch); err != nil {
		e.logger.Error("failed to ingest batch", zap.Error(err), zap.String("user_id", env.UserID))
	}
}

// Ingest applies one batch synchronously and publishes the outcome.
func (e *Engine) Ingest(ctx context.Context, userID string, b *event.Batch) (*reconcile.Result, error) {
	eventID := ""
	if b != nil {
		eventID = b.EventID
	}
	res, err := e.applier.ApplyBatch(ctx, userID, b)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		e.degrade()
		e.bus.Emit(bus.KindBatchFailed, bus.BatchFailed{UserID: userID, EventID: eventID, Err: err.Error()})
		return nil, err
	}
	e.recover()
	e.bus.Emit(bus.KindBatchApplied, bus.BatchApplied{
		UserID: userID, EventID: eventID, Applied: res.Applied, Skipped: res.Skipped,
	})
	return res, nil
}

func (e *Engine) degrade() {
	if e.machine != nil && e.machine.TransitionIf(status.Ready, status.Degraded) {
		e.logger.Warn("session degraded after a rolled back batch")
	}
}

func (e *Engine) recover() {
	if e.machine != nil && e.machine.TransitionIf(status.Degraded, status.Ready) {
		e.logger.Info("session recovered")
	}
}
