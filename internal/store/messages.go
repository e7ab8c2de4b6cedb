package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func getMessage(ctx context.Context, q querier, userID, id string) (*Message, error) {
	m := Message{UserID: userID}
	var expiration, snooze sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT id, sort_order, conversation_id, title, unread, sender, flags, replied, replied_all, forwarded,
			to_list, cc_list, bcc_list, time, size, num_attachments, expiration_time, address_id,
			attachments_metadata, snooze_time, message_status
		FROM messages WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&m.ID, &m.Order, &m.ConversationID, &m.Title, &m.Unread, &m.Sender, &m.Flags, &m.Replied, &m.RepliedAll, &m.Forwarded,
			&m.ToList, &m.CCList, &m.BCCList, &m.Time, &m.Size, &m.NumAttachments, &expiration, &m.AddressID,
			&m.AttachmentsMetadata, &snooze, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %q: %w", id, err)
	}
	if expiration.Valid {
		m.ExpirationTime = &expiration.Int64
	}
	if snooze.Valid {
		m.SnoozeTime = &snooze.Int64
	}
	if m.LabelIDs, err = messageLabels.load(ctx, q, userID, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveMessage(ctx context.Context, q querier, m *Message) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO messages (user_id, id, sort_order, conversation_id, title, unread, sender, flags, replied, replied_all, forwarded,
			to_list, cc_list, bcc_list, time, size, num_attachments, expiration_time, address_id,
			attachments_metadata, snooze_time, message_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			sort_order = excluded.sort_order,
			conversation_id = excluded.conversation_id,
			title = excluded.title,
			unread = excluded.unread,
			sender = excluded.sender,
			flags = excluded.flags,
			replied = excluded.replied,
			replied_all = excluded.replied_all,
			forwarded = excluded.forwarded,
			to_list = excluded.to_list,
			cc_list = excluded.cc_list,
			bcc_list = excluded.bcc_list,
			time = excluded.time,
			size = excluded.size,
			num_attachments = excluded.num_attachments,
			expiration_time = excluded.expiration_time,
			address_id = excluded.address_id,
			attachments_metadata = excluded.attachments_metadata,
			snooze_time = excluded.snooze_time,
			message_status = excluded.message_status`,
		m.UserID, m.ID, m.Order, m.ConversationID, m.Title, m.Unread, m.Sender, m.Flags, m.Replied, m.RepliedAll, m.Forwarded,
		m.ToList, m.CCList, m.BCCList, m.Time, m.Size, m.NumAttachments, nullableInt(m.ExpirationTime), m.AddressID,
		m.AttachmentsMetadata, nullableInt(m.SnoozeTime), m.Status)
	if err != nil {
		return fmt.Errorf("save message %q: %w", m.ID, err)
	}
	return messageLabels.save(ctx, q, m.UserID, m.ID, m.LabelIDs)
}

// GetMessage returns a message with its label set, or nil if it is not cached.
func (db *DB) GetMessage(ctx context.Context, userID, id string) (*Message, error) {
	return getMessage(ctx, db.DB, userID, id)
}

// Message returns a message as seen by the transaction, or nil.
func (t *Tx) Message(userID, id string) (*Message, error) {
	return getMessage(t.ctx, t.tx, userID, id)
}

// UpsertMessage creates or updates the message keyed by (userID, id).
func (t *Tx) UpsertMessage(userID, id string, mutate func(*Message)) error {
	return upsert(
		func() (*Message, error) { return getMessage(t.ctx, t.tx, userID, id) },
		func() *Message { return &Message{UserID: userID, ID: id} },
		mutate,
		func(m *Message) error { return saveMessage(t.ctx, t.tx, m) },
	)
}

// DeleteMessage clears a message's label memberships and removes it.
func (t *Tx) DeleteMessage(userID, id string) error {
	if err := messageLabels.clear(t.ctx, t.tx, userID, id); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM messages WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete message %q: %w", id, err)
	}
	return nil
}

// MessagesWithLabel returns the IDs of messages carrying labelID.
func (db *DB) MessagesWithLabel(ctx context.Context, userID, labelID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT message_id FROM message_labels WHERE user_id = ? AND label_id = ? ORDER BY message_id`, userID, labelID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
