package store

import (
	"context"
	"fmt"

	"github.com/matheus3301/mailsync/internal/labelset"
)

// membership describes a join table holding an entity's label set.
type membership struct {
	table    string
	ownerCol string
}

var (
	messageLabels      = membership{table: "message_labels", ownerCol: "message_id"}
	contactEmailLabels = membership{table: "contact_email_labels", ownerCol: "email_id"}
)

func (m membership) load(ctx context.Context, q querier, userID, ownerID string) (labelset.Set, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT label_id FROM %s WHERE user_id = ? AND %s = ?`, m.table, m.ownerCol),
		userID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", m.table, err)
	}
	defer func() { _ = rows.Close() }()

	set := labelset.New()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", m.table, err)
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// save rewrites only the memberships that changed.
func (m membership) save(ctx context.Context, q querier, userID, ownerID string, next labelset.Set) error {
	current, err := m.load(ctx, q, userID, ownerID)
	if err != nil {
		return err
	}
	diff := labelset.Changes(current, next)
	for _, id := range diff.Removed {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND %s = ? AND label_id = ?`, m.table, m.ownerCol),
			userID, ownerID, id); err != nil {
			return fmt.Errorf("remove %s %q: %w", m.table, id, err)
		}
	}
	for _, id := range diff.Added {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id, %s, label_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`, m.table, m.ownerCol),
			userID, ownerID, id); err != nil {
			return fmt.Errorf("add %s %q: %w", m.table, id, err)
		}
	}
	return nil
}

func (m membership) clear(ctx context.Context, q querier, userID, ownerID string) error {
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND %s = ?`, m.table, m.ownerCol),
		userID, ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", m.table, err)
	}
	return nil
}

func (m membership) dropLabel(ctx context.Context, q querier, userID, labelID string) error {
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND label_id = ?`, m.table),
		userID, labelID); err != nil {
		return fmt.Errorf("drop label from %s: %w", m.table, err)
	}
	return nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
