package reconcile

import (
	"context"

	"go.uber.org/zap"
)

// PendingSendQuery reports whether a locally-initiated send for a message is
// still waiting to reach the server. It is called from inside the batch
// transaction, so implementations must not take the write lock.
type PendingSendQuery interface {
	HasPendingSendTask(ctx context.Context, userID, messageID string) (bool, error)
}

// sendGuard suppresses server echoes of a draft that is being sent.
type sendGuard struct {
	query  PendingSendQuery
	logger *zap.Logger
}

// inFlight reports whether messageID has a pending send. A failed query is
// treated as no pending send.
func (g sendGuard) inFlight(ctx context.Context, userID, messageID string) bool {
	if g.query == nil {
		return false
	}
	pending, err := g.query.HasPendingSendTask(ctx, userID, messageID)
	if err != nil {
		g.logger.Warn("pending send query failed, assuming none",
			zap.String("user_id", userID), zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	return pending
}
