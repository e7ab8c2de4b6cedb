package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func getContactEmail(ctx context.Context, q querier, userID, id string) (*ContactEmail, error) {
	e := ContactEmail{UserID: userID}
	var contactID sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, contact_id, email, name, type, defaults, sort_order, last_used_time
		FROM contact_emails WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&e.ID, &contactID, &e.Email, &e.Name, &e.Type, &e.Defaults, &e.Order, &e.LastUsedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact email %q: %w", id, err)
	}
	if contactID.Valid {
		e.ContactID = &contactID.String
	}
	if e.LabelIDs, err = contactEmailLabels.load(ctx, q, userID, id); err != nil {
		return nil, err
	}
	return &e, nil
}

func saveContactEmail(ctx context.Context, q querier, e *ContactEmail) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO contact_emails (user_id, id, contact_id, email, name, type, defaults, sort_order, last_used_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			contact_id = excluded.contact_id,
			email = excluded.email,
			name = excluded.name,
			type = excluded.type,
			defaults = excluded.defaults,
			sort_order = excluded.sort_order,
			last_used_time = excluded.last_used_time`,
		e.UserID, e.ID, nullableString(e.ContactID), e.Email, e.Name, e.Type, e.Defaults, e.Order, e.LastUsedTime)
	if err != nil {
		return fmt.Errorf("save contact email %q: %w", e.ID, err)
	}
	return contactEmailLabels.save(ctx, q, e.UserID, e.ID, e.LabelIDs)
}

// GetContactEmail returns a contact email with its label set, or nil.
func (db *DB) GetContactEmail(ctx context.Context, userID, id string) (*ContactEmail, error) {
	return getContactEmail(ctx, db.DB, userID, id)
}

// ContactEmailsOf returns the IDs of emails whose back-reference points at contactID.
func (db *DB) ContactEmailsOf(ctx context.Context, userID, contactID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM contact_emails WHERE user_id = ? AND contact_id = ? ORDER BY sort_order, id`, userID, contactID)
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

// UpsertContactEmail creates or updates the contact email keyed by (userID, id).
func (t *Tx) UpsertContactEmail(userID, id string, mutate func(*ContactEmail)) error {
	return upsert(
		func() (*ContactEmail, error) { return getContactEmail(t.ctx, t.tx, userID, id) },
		func() *ContactEmail { return &ContactEmail{UserID: userID, ID: id} },
		mutate,
		func(e *ContactEmail) error { return saveContactEmail(t.ctx, t.tx, e) },
	)
}

// DeleteContactEmail removes a contact email and its label memberships.
func (t *Tx) DeleteContactEmail(userID, id string) error {
	if err := contactEmailLabels.clear(t.ctx, t.tx, userID, id); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM contact_emails WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete contact email %q: %w", id, err)
	}
	return nil
}
