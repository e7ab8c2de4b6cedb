package api

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/mailsync/internal/bus"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/fetchqueue"
	"github.com/matheus3301/mailsync/internal/outbox"
	"github.com/matheus3301/mailsync/internal/reconcile"
	"github.com/matheus3301/mailsync/internal/status"
	"github.com/matheus3301/mailsync/internal/store"
	"github.com/matheus3301/mailsync/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type fixture struct {
	client *Client
	db     *store.DB
	bus    *bus.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	machine := status.NewMachine(b)
	require.NoError(t, machine.Transition(status.Ready))

	queue := fetchqueue.NewMemory(16)
	ob := outbox.NewService(db, b, nil)
	ingest := sync.NewEngine(reconcile.New(db, ob, queue, nil), b, machine, 8, nil)
	ingest.Start(context.Background())
	t.Cleanup(ingest.Stop)

	// Socket paths are limited to ~100 bytes, so avoid the long test temp dir.
	dir, err := os.MkdirTemp("", "mailsync-api")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "daemon.sock")

	srv := grpc.NewServer()
	RegisterSyncServer(srv, NewSyncService("test", ingest, ob, queue, machine, b, db))
	lis, err := net.Listen("unix", sock)
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := Dial(sock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return &fixture{client: c, db: db, bus: b}
}

func draft(to string) *event.Batch {
	return &event.Batch{Messages: []event.MessageEvent{{
		ID:     "d1",
		Action: event.Create,
		Message: &event.Message{
			ID: "d1", ConversationID: "cv1", Subject: "hello",
			ToList:   []event.Address{{Address: to}},
			LabelIDs: []string{event.LabelHiddenDraft, event.LabelDraft},
		},
	}}}
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := grpcstatus.FromError(err)
	require.True(t, ok, "not a gRPC status: %v", err)
	assert.Equal(t, want, st.Code(), st.Message())
}

func TestApplyBatchAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.ApplyBatch(ctx, &ApplyBatchRequest{
		UserID: "u1",
		Batch: &event.Batch{
			EventID: "ev-1",
			Labels: []event.LabelEvent{{
				ID: "L1", Action: event.Create,
				Label: &event.Label{ID: "L1", Name: "Work"},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
	assert.False(t, resp.Queued)

	st, err := f.client.Status(ctx, &StatusRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "test", st.Session)
	assert.Equal(t, string(status.Ready), st.State)
	assert.Equal(t, int64(1), st.Rows["labels"])
	assert.Zero(t, st.Rows["messages"])

	st, err = f.client.Status(ctx, &StatusRequest{})
	require.NoError(t, err)
	assert.Nil(t, st.Rows)
}

func TestApplyBatchRequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.ApplyBatch(context.Background(), &ApplyBatchRequest{Batch: draft("a@example.com")})
	requireCode(t, err, codes.InvalidArgument)
}

func TestApplyBatchAsync(t *testing.T) {
	f := newFixture(t)
	applied, unsub := f.bus.Subscribe(bus.KindBatchApplied, 4)
	defer unsub()

	resp, err := f.client.ApplyBatch(context.Background(), &ApplyBatchRequest{
		UserID: "u1", Batch: draft("a@example.com"), Async: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Queued)

	select {
	case <-applied:
	case <-time.After(2 * time.Second):
		t.Fatal("async batch never applied")
	}
	m, err := f.db.GetMessage(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestApplyBatchAsyncFloodIsNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 200
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("L%03d", i)
		resp, err := f.client.ApplyBatch(ctx, &ApplyBatchRequest{
			UserID: "u1",
			Async:  true,
			Batch: &event.Batch{Labels: []event.LabelEvent{{
				ID: id, Action: event.Create, Label: &event.Label{ID: id, Name: id},
			}}},
		})
		require.NoError(t, err)
		require.True(t, resp.Queued)
	}

	require.Eventually(t, func() bool {
		rows, err := f.db.CountRows(ctx, "u1")
		return err == nil && rows["labels"] == n
	}, 5*time.Second, 20*time.Millisecond, "every acknowledged batch is applied")
}

func TestQueuedSendGuardsDraftEcho(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.ApplyBatch(ctx, &ApplyBatchRequest{UserID: "u1", Batch: draft("first@example.com")})
	require.NoError(t, err)

	q, err := f.client.QueueAction(ctx, &QueueActionRequest{UserID: "u1", MessageID: "d1", Kind: store.ActionSend})
	require.NoError(t, err)
	require.NotEmpty(t, q.ID)

	echo := draft("echo@example.com")
	echo.Messages[0].Action = event.Update
	resp, err := f.client.ApplyBatch(ctx, &ApplyBatchRequest{UserID: "u1", Batch: echo})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Skipped)

	m, err := f.db.GetMessage(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Contains(t, m.ToList, "first@example.com")

	_, err = f.client.CompleteAction(ctx, &CompleteActionRequest{ID: q.ID})
	require.NoError(t, err)

	resp, err = f.client.ApplyBatch(ctx, &ApplyBatchRequest{UserID: "u1", Batch: echo})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
}

func TestActionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.QueueAction(ctx, &QueueActionRequest{UserID: "u1", MessageID: "m1", Kind: "forward"})
	requireCode(t, err, codes.InvalidArgument)

	_, err = f.client.QueueAction(ctx, &QueueActionRequest{MessageID: "m1", Kind: store.ActionSend})
	requireCode(t, err, codes.InvalidArgument)

	_, err = f.client.CompleteAction(ctx, &CompleteActionRequest{ID: "missing"})
	requireCode(t, err, codes.NotFound)
}

func TestNextContactFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.ApplyBatch(ctx, &ApplyBatchRequest{
		UserID: "u1",
		Batch: &event.Batch{ContactsLightweight: []event.ContactRef{
			{ID: "c1", Action: event.Create},
			{ID: "c2", Action: event.Update},
		}},
	})
	require.NoError(t, err)

	next, err := f.client.NextContactFetch(ctx, &NextContactFetchRequest{WaitMs: 500})
	require.NoError(t, err)
	require.True(t, next.Found)
	assert.Equal(t, "u1", next.Request.UserID)
	assert.Equal(t, []string{"c1", "c2"}, next.Request.ContactIDs)

	next, err = f.client.NextContactFetch(ctx, &NextContactFetchRequest{WaitMs: 20})
	require.NoError(t, err)
	assert.False(t, next.Found)
}
