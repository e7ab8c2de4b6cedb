package reconcile

import (
	"context"

	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/store"
	"go.uber.org/zap"
)

// run is the state of one batch inside its transaction.
type run struct {
	ctx    context.Context
	tx     *store.Tx
	userID string
	guard  sendGuard
	codecs Codecs
	batch  int
	logger *zap.Logger

	applied int
	skipped int
	fetches [][]string
}

// apply runs the entity passes in dependency order. Labels come first because
// every later pass may reference them.
func (r *run) apply(b *event.Batch) error {
	stages := []struct {
		name string
		fn   func() error
	}{
		{"labels", func() error { return r.labels(b.Labels) }},
		{"contacts_lightweight", func() error { return r.contactRefs(b.ContactsLightweight) }},
		{"contacts", func() error { return r.contacts(b.Contacts) }},
		{"contact_emails", func() error { return r.contactEmails(b.ContactEmails) }},
		{"conversations", func() error { return r.conversations(b.Conversations) }},
		{"messages", func() error { return r.messages(b.Messages) }},
	}
	for _, s := range stages {
		if err := s.fn(); err != nil {
			return &ReconciliationError{UserID: r.userID, Stage: s.name, Err: err}
		}
	}
	return nil
}

func (r *run) done() {
	r.applied++
}

// skip records an item that was left out without failing the batch.
func (r *run) skip(kind, id string, action event.Action, reason string, fields ...zap.Field) {
	r.skipped++
	r.logger.Warn("skipping "+kind+" event", append([]zap.Field{
		zap.String("id", id),
		zap.String("action", action.String()),
		zap.String("reason", reason),
	}, fields...)...)
}

// payloadOK validates an upsert payload, skipping the item if it is unusable.
func (r *run) payloadOK(kind, id string, action event.Action, payload any) bool {
	if err := event.Validate(payload); err != nil {
		r.skip(kind, id, action, "invalid payload", zap.Error(err))
		return false
	}
	return true
}

func nonZero(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func flag(v int) bool {
	return v != 0
}
