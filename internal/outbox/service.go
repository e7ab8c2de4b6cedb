// Package outbox tracks locally-initiated mail actions until the server
// acknowledges them.
package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/mailsync/internal/bus"
	"github.com/matheus3301/mailsync/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrUnknownKind is returned when queuing an action kind that is not recognized.
	ErrUnknownKind = errors.New("unknown action kind")
	// ErrMissingID is returned when queuing without a user or message id.
	ErrMissingID = errors.New("user id and message id are required")
	// ErrNotFound is returned when an action id does not exist.
	ErrNotFound = errors.New("action not found")
)

var kinds = map[string]bool{
	store.ActionSend:      true,
	store.ActionSaveDraft: true,
	store.ActionLabel:     true,
	store.ActionUnlabel:   true,
	store.ActionRead:      true,
	store.ActionUnread:    true,
	store.ActionDelete:    true,
}

// Service is the outgoing-action queue. It also answers the reconciliation
// engine's in-flight send query.
type Service struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewService creates an outbox service. b may be nil.
func NewService(db *store.DB, b *bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, bus: b, logger: logger}
}

// Queue records a new action for messageID and returns its id.
func (s *Service) Queue(ctx context.Context, userID, messageID, kind string) (string, error) {
	if !kinds[kind] {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if userID == "" || messageID == "" {
		return "", ErrMissingID
	}
	id := uuid.NewString()
	if err := s.db.QueueAction(ctx, id, userID, messageID, kind); err != nil {
		return "", fmt.Errorf("queue action: %w", err)
	}
	s.logger.Debug("action queued",
		zap.String("id", id), zap.String("user_id", userID),
		zap.String("message_id", messageID), zap.String("kind", kind))
	s.emit(bus.KindActionQueued, bus.ActionChanged{
		ID: id, UserID: userID, MessageID: messageID, Kind: kind, Status: store.ActionQueued,
	})
	return id, nil
}

// Start marks an action as running.
func (s *Service) Start(ctx context.Context, id string) error {
	a, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.MarkActionRunning(ctx, a.ID); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

// Complete finishes an action. A non-empty errMsg marks it failed.
func (s *Service) Complete(ctx context.Context, id, errMsg string) error {
	a, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	status := store.ActionDone
	if errMsg != "" {
		status = store.ActionFailed
		err = s.db.MarkActionFailed(ctx, id, errMsg)
	} else {
		err = s.db.MarkActionDone(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("complete action: %w", err)
	}
	s.logger.Debug("action completed", zap.String("id", id), zap.String("status", status))
	s.emit(bus.KindActionCompleted, bus.ActionChanged{
		ID: a.ID, UserID: a.UserID, MessageID: a.MessageID, Kind: a.Kind, Status: status,
	})
	return nil
}

// Pending lists a user's queued and running actions.
func (s *Service) Pending(ctx context.Context, userID string) ([]store.OutgoingAction, error) {
	return s.db.PendingActions(ctx, userID)
}

// HasPendingSendTask reports whether a send for messageID is queued or running.
func (s *Service) HasPendingSendTask(ctx context.Context, userID, messageID string) (bool, error) {
	return s.db.HasPendingSendTask(ctx, userID, messageID)
}

func (s *Service) lookup(ctx context.Context, id string) (*store.OutgoingAction, error) {
	a, err := s.db.GetAction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

func (s *Service) emit(kind string, payload bus.ActionChanged) {
	if s.bus != nil {
		s.bus.Emit(kind, payload)
	}
}
