package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func getLabel(ctx context.Context, q querier, userID, id string) (*Label, error) {
	l := Label{UserID: userID}
	var parent sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, name, path, type, color, sort_order, notify, sticky, parent_id
		FROM labels WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&l.ID, &l.Name, &l.Path, &l.Type, &l.Color, &l.Order, &l.Notify, &l.Sticky, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get label %q: %w", id, err)
	}
	if parent.Valid {
		l.ParentID = &parent.String
	}
	return &l, nil
}

func saveLabel(ctx context.Context, q querier, l *Label) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO labels (user_id, id, name, path, type, color, sort_order, notify, sticky, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			type = excluded.type,
			color = excluded.color,
			sort_order = excluded.sort_order,
			notify = excluded.notify,
			sticky = excluded.sticky,
			parent_id = excluded.parent_id`,
		l.UserID, l.ID, l.Name, l.Path, l.Type, l.Color, l.Order, l.Notify, l.Sticky, nullableString(l.ParentID))
	if err != nil {
		return fmt.Errorf("save label %q: %w", l.ID, err)
	}
	return nil
}

// GetLabel returns a label, or nil if it is not cached.
func (db *DB) GetLabel(ctx context.Context, userID, id string) (*Label, error) {
	return getLabel(ctx, db.DB, userID, id)
}

// UpsertLabel creates or updates the label keyed by (userID, id).
func (t *Tx) UpsertLabel(userID, id string, mutate func(*Label)) error {
	return upsert(
		func() (*Label, error) { return getLabel(t.ctx, t.tx, userID, id) },
		func() *Label { return &Label{UserID: userID, ID: id} },
		mutate,
		func(l *Label) error { return saveLabel(t.ctx, t.tx, l) },
	)
}

// DeleteLabel removes a label and every reference to it: message and
// contact email memberships and context labels. Absent labels are a no-op.
func (t *Tx) DeleteLabel(userID, id string) error {
	if err := messageLabels.dropLabel(t.ctx, t.tx, userID, id); err != nil {
		return err
	}
	if err := contactEmailLabels.dropLabel(t.ctx, t.tx, userID, id); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM context_labels WHERE user_id = ? AND label_id = ?`, userID, id); err != nil {
		return fmt.Errorf("drop context labels for %q: %w", id, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `UPDATE labels SET parent_id = NULL WHERE user_id = ? AND parent_id = ?`, userID, id); err != nil {
		return fmt.Errorf("detach children of %q: %w", id, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM labels WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete label %q: %w", id, err)
	}
	return nil
}
