package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/mailsync/internal/bus"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/reconcile"
	"github.com/matheus3301/mailsync/internal/status"
	"github.com/matheus3301/mailsync/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func labelBatch(eventID, labelID, name string) *event.Batch {
	return &event.Batch{
		EventID: eventID,
		Labels: []event.LabelEvent{{
			ID:     labelID,
			Action: event.Create,
			Label:  &event.Label{ID: labelID, Name: name},
		}},
	}
}

type failingApplier struct{ err error }

func (f failingApplier) ApplyBatch(context.Context, string, *event.Batch) (*reconcile.Result, error) {
	return nil, f.err
}

func TestEngineIngestPublishesApplied(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(reconcile.New(db, nil, nil, nil), b, nil, 8, nil)

	ch, unsub := b.Subscribe("events.applied", 10)
	defer unsub()

	res, err := e.Ingest(context.Background(), "u1", labelBatch("ev-1", "L1", "Work"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied != 1 {
		t.Errorf("Applied = %d, want 1", res.Applied)
	}

	l, err := db.GetLabel(context.Background(), "u1", "L1")
	if err != nil {
		t.Fatal(err)
	}
	if l == nil || l.Name != "Work" {
		t.Fatalf("label = %+v, want Work", l)
	}

	select {
	case evt := <-ch:
		applied, ok := evt.Payload.(bus.BatchApplied)
		if !ok {
			t.Fatalf("payload type = %T, want BatchApplied", evt.Payload)
		}
		if applied.EventID != "ev-1" || applied.UserID != "u1" || applied.Applied != 1 {
			t.Errorf("applied = %+v", applied)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for events.applied")
	}
}

func TestEngineFailureDegradesAndRecovers(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	if err := m.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}

	ch, unsub := b.Subscribe("events.failed", 10)
	defer unsub()

	boom := errors.New("disk full")
	bad := NewEngine(failingApplier{err: boom}, b, m, 1, nil)
	if _, err := bad.Ingest(context.Background(), "u1", labelBatch("ev-2", "L1", "x")); !errors.Is(err, boom) {
		t.Fatalf("Ingest() error = %v, want %v", err, boom)
	}
	if m.Current() != status.Degraded {
		t.Errorf("state = %s, want DEGRADED", m.Current())
	}

	select {
	case evt := <-ch:
		failed := evt.Payload.(bus.BatchFailed)
		if failed.EventID != "ev-2" || failed.Err != "disk full" {
			t.Errorf("failed = %+v", failed)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for events.failed")
	}

	good := NewEngine(reconcile.New(testDB(t), nil, nil, nil), b, m, 1, nil)
	if _, err := good.Ingest(context.Background(), "u1", labelBatch("ev-3", "L1", "x")); err != nil {
		t.Fatal(err)
	}
	if m.Current() != status.Ready {
		t.Errorf("state = %s, want READY after a good batch", m.Current())
	}
}

// TestEngineBusSubscription verifies batches published on the bus are applied
// in arrival order.
func TestEngineBusSubscription(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	e := NewEngine(reconcile.New(db, nil, nil, logger), b, nil, 16, logger)

	applied, unsub := b.Subscribe("events.applied", 16)
	defer unsub()

	e.Start(context.Background())
	defer e.Stop()

	b.Emit(bus.KindBatch, BatchEnvelope{UserID: "u1", Batch: labelBatch("ev-1", "L1", "first")})
	b.Emit(bus.KindBatch, BatchEnvelope{UserID: "u1", Batch: labelBatch("ev-2", "L1", "second")})

	for i := 0; i < 2; i++ {
		select {
		case <-applied:
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for batch %d", i+1)
		}
	}

	l, err := db.GetLabel(context.Background(), "u1", "L1")
	if err != nil {
		t.Fatal(err)
	}
	if l == nil || l.Name != "second" {
		t.Errorf("label = %+v, want the later batch to win", l)
	}
}

func TestEngineIgnoresForeignPayload(t *testing.T) {
	b := bus.New()
	e := NewEngine(failingApplier{err: errors.New("must not be called")}, b, nil, 1, nil)
	failed, unsub := b.Subscribe("events.failed", 1)
	defer unsub()

	e.handleEvent(context.Background(), bus.Event{Kind: bus.KindBatch, Payload: "not a batch"})

	select {
	case evt := <-failed:
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}

// TestSubmitNeverLosesAcceptedBatches floods a small queue; every batch
// Submit accepted must be in the store once Stop returns.
func TestSubmitNeverLosesAcceptedBatches(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(reconcile.New(db, nil, nil, nil), b, nil, 4, nil)
	e.Start(context.Background())

	const n = 200
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("L%03d", i)
		if err := e.Submit(context.Background(), "u1", labelBatch("ev-"+id, id, id)); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}
	e.Stop()

	counts, err := db.CountRows(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if counts["labels"] != n {
		t.Errorf("labels = %d, want %d", counts["labels"], n)
	}
	if b.Dropped() != 0 {
		t.Errorf("bus dropped %d events carrying submitted batches", b.Dropped())
	}
}

func TestSubmitWaitsForRoom(t *testing.T) {
	db := testDB(t)
	e := NewEngine(reconcile.New(db, nil, nil, nil), bus.New(), nil, 1, nil)

	if err := e.Submit(context.Background(), "u1", labelBatch("ev-1", "L1", "kept")); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Submit(ctx, "u1", labelBatch("ev-2", "L2", "refused")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit() on a full queue error = %v, want DeadlineExceeded", err)
	}

	e.Start(context.Background())
	e.Stop()

	l, err := db.GetLabel(context.Background(), "u1", "L1")
	if err != nil {
		t.Fatal(err)
	}
	if l == nil {
		t.Error("batch accepted before Start was not applied")
	}
	if l2, _ := db.GetLabel(context.Background(), "u1", "L2"); l2 != nil {
		t.Error("refused batch was applied")
	}

	if err := e.Submit(context.Background(), "u1", labelBatch("ev-3", "L3", "late")); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit() after Stop error = %v, want ErrStopped", err)
	}
}
