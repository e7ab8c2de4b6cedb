package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/mailsync/internal/bus"
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

func TestQueueAndComplete(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	s := NewService(db, b, logger)
	ctx := context.Background()

	ch, unsub := b.Subscribe("outbox.", 10)
	defer unsub()

	id, err := s.Queue(ctx, "u1", "m1", store.ActionSend)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("Queue() returned an empty id")
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindActionQueued {
			t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindActionQueued)
		}
		change := evt.Payload.(bus.ActionChanged)
		if change.ID != id || change.MessageID != "m1" || change.Status != store.ActionQueued {
			t.Errorf("queued event = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for outbox.queued")
	}

	pending, err := s.HasPendingSendTask(ctx, "u1", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if !pending {
		t.Error("queued send not reported as pending")
	}

	if err := s.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, id, ""); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change := evt.Payload.(bus.ActionChanged)
		if evt.Kind != bus.KindActionCompleted || change.Status != store.ActionDone {
			t.Errorf("completion event = %s %+v", evt.Kind, change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for outbox.completed")
	}

	pending, _ = s.HasPendingSendTask(ctx, "u1", "m1")
	if pending {
		t.Error("completed send still pending")
	}
}

func TestCompleteWithErrorFails(t *testing.T) {
	db := testDB(t)
	s := NewService(db, nil, nil)
	ctx := context.Background()

	id, err := s.Queue(ctx, "u1", "m1", store.ActionLabel)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, id, "rejected"); err != nil {
		t.Fatal(err)
	}
	a, err := db.GetAction(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != store.ActionFailed || a.ErrorMessage != "rejected" {
		t.Errorf("action = %s/%q, want failed/rejected", a.Status, a.ErrorMessage)
	}

	list, err := s.Pending(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("got %d pending, want 0", len(list))
	}
}

func TestQueueRejectsBadInput(t *testing.T) {
	s := NewService(testDB(t), nil, nil)
	ctx := context.Background()

	if _, err := s.Queue(ctx, "u1", "m1", "forward"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Queue(forward) error = %v, want ErrUnknownKind", err)
	}
	if _, err := s.Queue(ctx, "", "m1", store.ActionSend); !errors.Is(err, ErrMissingID) {
		t.Errorf("Queue() without user id error = %v, want ErrMissingID", err)
	}
}

func TestUnknownActionID(t *testing.T) {
	s := NewService(testDB(t), nil, nil)
	ctx := context.Background()

	if err := s.Start(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Start(nope) error = %v, want ErrNotFound", err)
	}
	if err := s.Complete(ctx, "nope", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Complete(nope) error = %v, want ErrNotFound", err)
	}
}

func TestReaperFailsStaleRunningActions(t *testing.T) {
	db := testDB(t)
	s := NewService(db, nil, nil)
	ctx := context.Background()

	running, _ := s.Queue(ctx, "u1", "m1", store.ActionSend)
	queued, _ := s.Queue(ctx, "u1", "m2", store.ActionSend)
	if err := s.Start(ctx, running); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	r := NewReaper(db, time.Hour, 5*time.Millisecond, nil)
	if n := r.Reap(ctx); n != 1 {
		t.Errorf("Reap() = %d, want 1", n)
	}

	if ok, _ := s.HasPendingSendTask(ctx, "u1", "m1"); ok {
		t.Error("reaped send still pending")
	}
	if ok, _ := s.HasPendingSendTask(ctx, "u1", "m2"); !ok {
		t.Errorf("queued action %s should not be reaped", queued)
	}
}

func TestReaperLoopStops(t *testing.T) {
	db := testDB(t)
	s := NewService(db, nil, nil)
	ctx := context.Background()

	id, _ := s.Queue(ctx, "u1", "m1", store.ActionSend)
	if err := s.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	r := NewReaper(db, 10*time.Millisecond, time.Millisecond, nil)
	r.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		a, err := db.GetAction(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if a.Status == store.ActionFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reaper loop never failed the stale action")
		}
		time.Sleep(10 * time.Millisecond)
	}
	r.Stop()
}
