// Package api exposes the daemon over gRPC. Messages are plain Go structs
// carried by a JSON codec, so the service descriptor is written by hand.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/mailsync/internal/bus"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/fetchqueue"
	"github.com/matheus3301/mailsync/internal/outbox"
	"github.com/matheus3301/mailsync/internal/reconcile"
	"github.com/matheus3301/mailsync/internal/status"
	"github.com/matheus3301/mailsync/internal/store"
	intsync "github.com/matheus3301/mailsync/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	defaultFetchWait = 100 * time.Millisecond
	maxFetchWait     = 30 * time.Second
)

// Ingester applies batches synchronously or hands them to the bus.
type Ingester interface {
	Ingest(ctx context.Context, userID string, b *event.Batch) (*reconcile.Result, error)
	Submit(ctx context.Context, userID string, b *event.Batch) error
}

// SyncService implements SyncServer.
type SyncService struct {
	sessionName string
	startedAt   time.Time
	ingester    Ingester
	outbox      *outbox.Service
	fetch       fetchqueue.Queue
	machine     *status.Machine
	bus         *bus.Bus
	db          *store.DB
}

// NewSyncService creates a new sync service.
func NewSyncService(
	sessionName string,
	ingester Ingester,
	ob *outbox.Service,
	fetch fetchqueue.Queue,
	machine *status.Machine,
	b *bus.Bus,
	db *store.DB,
) *SyncService {
	return &SyncService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		ingester:    ingester,
		outbox:      ob,
		fetch:       fetch,
		machine:     machine,
		bus:         b,
		db:          db,
	}
}

func (s *SyncService) ApplyBatch(ctx context.Context, req *ApplyBatchRequest) (*ApplyBatchResponse, error) {
	if req.UserID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "user_id is required")
	}
	if req.Async {
		if err := s.ingester.Submit(ctx, req.UserID, req.Batch); err != nil {
			return nil, toStatus(err)
		}
		return &ApplyBatchResponse{Queued: true}, nil
	}
	res, err := s.ingester.Ingest(ctx, req.UserID, req.Batch)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ApplyBatchResponse{
		Applied:        res.Applied,
		Skipped:        res.Skipped,
		FetchesQueued:  res.FetchesQueued,
		FetchesDropped: res.FetchesDropped,
	}, nil
}

func (s *SyncService) QueueAction(ctx context.Context, req *QueueActionRequest) (*QueueActionResponse, error) {
	id, err := s.outbox.Queue(ctx, req.UserID, req.MessageID, req.Kind)
	if err != nil {
		return nil, toStatus(err)
	}
	return &QueueActionResponse{ID: id}, nil
}

func (s *SyncService) CompleteAction(ctx context.Context, req *CompleteActionRequest) (*CompleteActionResponse, error) {
	if err := s.outbox.Complete(ctx, req.ID, req.Error); err != nil {
		return nil, toStatus(err)
	}
	return &CompleteActionResponse{}, nil
}

func (s *SyncService) NextContactFetch(ctx context.Context, req *NextContactFetchRequest) (*NextContactFetchResponse, error) {
	wait := time.Duration(req.WaitMs) * time.Millisecond
	if wait <= 0 {
		wait = defaultFetchWait
	}
	wait = min(wait, maxFetchWait)

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	fr, err := s.fetch.Dequeue(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return &NextContactFetchResponse{}, nil
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &NextContactFetchResponse{Found: true, Request: &fr}, nil
}

func (s *SyncService) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	resp := &StatusResponse{
		Session:      s.sessionName,
		State:        string(s.machine.Current()),
		StateSinceMs: s.machine.Since().UnixMilli(),
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
		BusDropped:   s.bus.Dropped(),
	}
	if depth, err := s.fetch.Depth(ctx); err == nil {
		resp.FetchQueueDepth = depth
	}
	if req.UserID != "" {
		rows, err := s.db.CountRows(ctx, req.UserID)
		if err != nil {
			return nil, toStatus(err)
		}
		resp.Rows = rows
	}
	return resp, nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	var rerr *reconcile.ReconciliationError
	switch {
	case errors.Is(err, outbox.ErrUnknownKind), errors.Is(err, outbox.ErrMissingID):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, outbox.ErrNotFound):
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.Is(err, fetchqueue.ErrClosed), errors.Is(err, intsync.ErrStopped):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.As(err, &rerr):
		return grpcstatus.Errorf(codes.Internal, "batch rolled back at %s: %v", rerr.Stage, rerr.Err)
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
