package store

import (
	"context"
	"database/sql"
	"time"
)

// QueueAction adds a locally-initiated action to the outgoing queue.
func (db *DB) QueueAction(ctx context.Context, id, userID, messageID, kind string) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO outgoing_actions (id, user_id, message_id, kind, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'queued', ?, ?)`,
		id, userID, messageID, kind, now, now)
	return err
}

// MarkActionRunning updates an outgoing action to 'running' status.
func (db *DB) MarkActionRunning(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `UPDATE outgoing_actions SET status = 'running', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// MarkActionDone updates an outgoing action to 'done'.
func (db *DB) MarkActionDone(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `UPDATE outgoing_actions SET status = 'done', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// MarkActionFailed updates an outgoing action to 'failed' with an error message.
func (db *DB) MarkActionFailed(ctx context.Context, id, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `UPDATE outgoing_actions SET status = 'failed', error_message = ?, updated_at = ? WHERE id = ?`, errMsg, now, id)
	return err
}

// PendingActions returns a user's outgoing actions that are queued or running, oldest first.
func (db *DB) PendingActions(ctx context.Context, userID string) ([]OutgoingAction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, message_id, kind, status, error_message, created_at
		FROM outgoing_actions
		WHERE user_id = ? AND status IN ('queued', 'running')
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var actions []OutgoingAction
	for rows.Next() {
		var a OutgoingAction
		if err := rows.Scan(&a.ID, &a.UserID, &a.MessageID, &a.Kind, &a.Status, &a.ErrorMessage, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// HasPendingSendTask reports whether a send for messageID is still queued or
// running. It reads through the pool, never through a batch transaction, so
// WAL lets it proceed while a batch holds the write lock.
func (db *DB) HasPendingSendTask(ctx context.Context, userID, messageID string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM outgoing_actions
		WHERE user_id = ? AND message_id = ? AND kind = 'send' AND status IN ('queued', 'running')`,
		userID, messageID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetAction returns one outgoing action, or nil if it does not exist.
func (db *DB) GetAction(ctx context.Context, id string) (*OutgoingAction, error) {
	var a OutgoingAction
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, message_id, kind, status, error_message, created_at
		FROM outgoing_actions WHERE id = ?`, id).
		Scan(&a.ID, &a.UserID, &a.MessageID, &a.Kind, &a.Status, &a.ErrorMessage, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FailStaleActions marks actions left 'running' since before cutoff as failed
// and returns how many it changed.
func (db *DB) FailStaleActions(ctx context.Context, cutoff time.Time, errMsg string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE outgoing_actions SET status = 'failed', error_message = ?, updated_at = ?
		WHERE status = 'running' AND updated_at < ?`,
		errMsg, time.Now().UnixMilli(), cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
