package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

func getContact(ctx context.Context, q querier, userID, id string) (*Contact, error) {
	c := Contact{UserID: userID}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, uid, size, create_time, modify_time, card_data, is_soft_deleted, is_downloaded
		FROM contacts WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&c.ID, &c.Name, &c.UID, &c.Size, &c.CreateTime, &c.ModifyTime, &c.CardData, &c.IsSoftDeleted, &c.IsDownloaded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact %q: %w", id, err)
	}
	return &c, nil
}

func saveContact(ctx context.Context, q querier, c *Contact) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO contacts (user_id, id, name, uid, size, create_time, modify_time, card_data, is_soft_deleted, is_downloaded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			name = excluded.name,
			uid = excluded.uid,
			size = excluded.size,
			create_time = excluded.create_time,
			modify_time = excluded.modify_time,
			card_data = excluded.card_data,
			is_soft_deleted = excluded.is_soft_deleted,
			is_downloaded = excluded.is_downloaded`,
		c.UserID, c.ID, c.Name, c.UID, c.Size, c.CreateTime, c.ModifyTime, c.CardData, c.IsSoftDeleted, c.IsDownloaded)
	if err != nil {
		return fmt.Errorf("save contact %q: %w", c.ID, err)
	}
	return nil
}

// GetContact returns a contact, or nil if it is not cached.
func (db *DB) GetContact(ctx context.Context, userID, id string) (*Contact, error) {
	return getContact(ctx, db.DB, userID, id)
}

// UpsertContact creates or updates the contact keyed by (userID, id).
func (t *Tx) UpsertContact(userID, id string, mutate func(*Contact)) error {
	return upsert(
		func() (*Contact, error) { return getContact(t.ctx, t.tx, userID, id) },
		func() *Contact { return &Contact{UserID: userID, ID: id} },
		mutate,
		func(c *Contact) error { return saveContact(t.ctx, t.tx, c) },
	)
}

// DeleteContact removes a contact row. Its emails keep their identity; only
// the back-reference is dropped.
func (t *Tx) DeleteContact(userID, id string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE contact_emails SET contact_id = NULL WHERE user_id = ? AND contact_id = ?`, userID, id); err != nil {
		return fmt.Errorf("unlink contact emails of %q: %w", id, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM contacts WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete contact %q: %w", id, err)
	}
	return nil
}

// ExistingContactIDs returns which of ids are cached and not soft-deleted.
func (t *Tx) ExistingContactIDs(userID string, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	// Stay well below SQLite's host parameter limit.
	const chunk = 500
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]

		args := make([]any, 0, len(part)+1)
		args = append(args, userID)
		for _, id := range part {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		rows, err := t.tx.QueryContext(t.ctx,
			`SELECT id FROM contacts WHERE user_id = ? AND is_soft_deleted = 0 AND id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query existing contacts: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan existing contact: %w", err)
			}
			found[id] = true
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}
