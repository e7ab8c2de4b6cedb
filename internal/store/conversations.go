package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func getConversation(ctx context.Context, q querier, userID, id string) (*Conversation, error) {
	c := Conversation{UserID: userID}
	var expiration sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT id, subject, sort_order, senders, recipients, attachments_metadata,
			num_messages, num_unread, num_attachments, size, expiration_time, display_snoozed_reminder
		FROM conversations WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&c.ID, &c.Subject, &c.Order, &c.Senders, &c.Recipients, &c.AttachmentsMetadata,
			&c.NumMessages, &c.NumUnread, &c.NumAttachments, &c.Size, &expiration, &c.DisplaySnoozedReminder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %q: %w", id, err)
	}
	if expiration.Valid {
		c.ExpirationTime = &expiration.Int64
	}
	return &c, nil
}

func saveConversation(ctx context.Context, q querier, c *Conversation) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO conversations (user_id, id, subject, sort_order, senders, recipients, attachments_metadata,
			num_messages, num_unread, num_attachments, size, expiration_time, display_snoozed_reminder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			subject = excluded.subject,
			sort_order = excluded.sort_order,
			senders = excluded.senders,
			recipients = excluded.recipients,
			attachments_metadata = excluded.attachments_metadata,
			num_messages = excluded.num_messages,
			num_unread = excluded.num_unread,
			num_attachments = excluded.num_attachments,
			size = excluded.size,
			expiration_time = excluded.expiration_time,
			display_snoozed_reminder = excluded.display_snoozed_reminder`,
		c.UserID, c.ID, c.Subject, c.Order, c.Senders, c.Recipients, c.AttachmentsMetadata,
		c.NumMessages, c.NumUnread, c.NumAttachments, c.Size, nullableInt(c.ExpirationTime), c.DisplaySnoozedReminder)
	if err != nil {
		return fmt.Errorf("save conversation %q: %w", c.ID, err)
	}
	return nil
}

// GetConversation returns a conversation, or nil if it is not cached.
func (db *DB) GetConversation(ctx context.Context, userID, id string) (*Conversation, error) {
	return getConversation(ctx, db.DB, userID, id)
}

// UpsertConversation creates or updates the conversation keyed by (userID, id).
func (t *Tx) UpsertConversation(userID, id string, mutate func(*Conversation)) error {
	return upsert(
		func() (*Conversation, error) { return getConversation(t.ctx, t.tx, userID, id) },
		func() *Conversation { return &Conversation{UserID: userID, ID: id} },
		mutate,
		func(c *Conversation) error { return saveConversation(t.ctx, t.tx, c) },
	)
}

// DeleteConversation removes a conversation together with its context labels.
func (t *Tx) DeleteConversation(userID, id string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM context_labels WHERE user_id = ? AND conversation_id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete context labels of %q: %w", id, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM conversations WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete conversation %q: %w", id, err)
	}
	return nil
}

const contextLabelColumns = `conversation_id, label_id, message_count, unread_count, time, expiration_time,
	size, attachment_count, sort_order, snooze_time`

func scanContextLabel(sc interface{ Scan(...any) error }, userID string) (*ContextLabel, error) {
	cl := ContextLabel{UserID: userID}
	var expiration, snooze sql.NullInt64
	if err := sc.Scan(&cl.ConversationID, &cl.LabelID, &cl.MessageCount, &cl.UnreadCount, &cl.Time, &expiration,
		&cl.Size, &cl.AttachmentCount, &cl.Order, &snooze); err != nil {
		return nil, err
	}
	if expiration.Valid {
		cl.ExpirationTime = &expiration.Int64
	}
	if snooze.Valid {
		cl.SnoozeTime = &snooze.Int64
	}
	return &cl, nil
}

func contextLabels(ctx context.Context, q querier, userID, conversationID string) ([]ContextLabel, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+contextLabelColumns+` FROM context_labels WHERE user_id = ? AND conversation_id = ? ORDER BY label_id`,
		userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query context labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ContextLabel
	for rows.Next() {
		cl, err := scanContextLabel(rows, userID)
		if err != nil {
			return nil, fmt.Errorf("scan context label: %w", err)
		}
		out = append(out, *cl)
	}
	return out, rows.Err()
}

func getContextLabel(ctx context.Context, q querier, userID, conversationID, labelID string) (*ContextLabel, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+contextLabelColumns+` FROM context_labels WHERE user_id = ? AND conversation_id = ? AND label_id = ?`,
		userID, conversationID, labelID)
	cl, err := scanContextLabel(row, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context label %q/%q: %w", conversationID, labelID, err)
	}
	return cl, nil
}

func saveContextLabel(ctx context.Context, q querier, cl *ContextLabel) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO context_labels (user_id, `+contextLabelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, conversation_id, label_id) DO UPDATE SET
			message_count = excluded.message_count,
			unread_count = excluded.unread_count,
			time = excluded.time,
			expiration_time = excluded.expiration_time,
			size = excluded.size,
			attachment_count = excluded.attachment_count,
			sort_order = excluded.sort_order,
			snooze_time = excluded.snooze_time`,
		cl.UserID, cl.ConversationID, cl.LabelID, cl.MessageCount, cl.UnreadCount, cl.Time, nullableInt(cl.ExpirationTime),
		cl.Size, cl.AttachmentCount, cl.Order, nullableInt(cl.SnoozeTime))
	if err != nil {
		return fmt.Errorf("save context label %q/%q: %w", cl.ConversationID, cl.LabelID, err)
	}
	return nil
}

// ContextLabels returns a conversation's context labels ordered by label ID.
func (db *DB) ContextLabels(ctx context.Context, userID, conversationID string) ([]ContextLabel, error) {
	return contextLabels(ctx, db.DB, userID, conversationID)
}

// ContextLabels returns a conversation's context labels as seen by the transaction.
func (t *Tx) ContextLabels(userID, conversationID string) ([]ContextLabel, error) {
	return contextLabels(t.ctx, t.tx, userID, conversationID)
}

// UpsertContextLabel creates or updates the (conversationID, labelID) context label.
func (t *Tx) UpsertContextLabel(userID, conversationID, labelID string, mutate func(*ContextLabel)) error {
	return upsert(
		func() (*ContextLabel, error) { return getContextLabel(t.ctx, t.tx, userID, conversationID, labelID) },
		func() *ContextLabel {
			return &ContextLabel{UserID: userID, ConversationID: conversationID, LabelID: labelID}
		},
		mutate,
		func(cl *ContextLabel) error { return saveContextLabel(t.ctx, t.tx, cl) },
	)
}

// DeleteContextLabel removes one context label. Absent rows are a no-op.
func (t *Tx) DeleteContextLabel(userID, conversationID, labelID string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM context_labels WHERE user_id = ? AND conversation_id = ? AND label_id = ?`,
		userID, conversationID, labelID); err != nil {
		return fmt.Errorf("delete context label %q/%q: %w", conversationID, labelID, err)
	}
	return nil
}
