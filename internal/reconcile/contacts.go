package reconcile

import (
	"github.com/matheus3301/mailsync/internal/codec"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/fetchqueue"
	"github.com/matheus3301/mailsync/internal/labelset"
	"github.com/matheus3301/mailsync/internal/store"
)

// contactRefs handles the lightweight stream. Deletes apply at once; created
// contacts not yet cached and all updated contacts are queued for a detail
// fetch, in chunks, once the batch commits.
func (r *run) contactRefs(refs []event.ContactRef) error {
	if len(refs) == 0 {
		return nil
	}
	var created, updated []string
	deleted := make(map[string]bool)
	for _, ref := range refs {
		switch {
		case ref.ID == "":
			r.skip("contact", ref.ID, ref.Action, "missing id")
		case ref.Action == event.Delete:
			if err := r.tx.DeleteContact(r.userID, ref.ID); err != nil {
				return err
			}
			deleted[ref.ID] = true
			r.done()
		case ref.Action == event.Create:
			created = append(created, ref.ID)
		case ref.Action == event.Update || ref.Action == event.UpdateFlags:
			updated = append(updated, ref.ID)
		default:
			r.skip("contact", ref.ID, ref.Action, "unknown action")
		}
	}

	existing, err := r.tx.ExistingContactIDs(r.userID, created)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var need []string
	add := func(id string) {
		if deleted[id] || seen[id] {
			return
		}
		seen[id] = true
		need = append(need, id)
	}
	for _, id := range created {
		if !existing[id] {
			add(id)
		}
	}
	for _, id := range updated {
		add(id)
	}
	r.fetches = append(r.fetches, fetchqueue.Chunk(need, r.batch)...)
	return nil
}

// contacts handles the full-payload stream. Embedded emails are linked back
// to their contact and take the event's label list wholesale.
func (r *run) contacts(items []event.ContactEvent) error {
	for _, it := range items {
		switch {
		case it.ID == "":
			r.skip("contact", it.ID, it.Action, "missing id")
		case it.Action == event.Delete:
			if err := r.tx.DeleteContact(r.userID, it.ID); err != nil {
				return err
			}
			r.done()
		case it.Action.IsUpsert():
			if !r.payloadOK("contact", it.ID, it.Action, it.Contact) {
				continue
			}
			c := it.Contact
			if err := r.tx.UpsertContact(r.userID, it.ID, func(row *store.Contact) {
				row.Name = c.Name
				row.UID = c.UID
				row.Size = c.Size
				row.CreateTime = c.CreateTime
				row.ModifyTime = c.ModifyTime
				row.CardData = codec.EncodeOr(r.codecs.Cards, c.Cards, "cards", r.logger)
				row.IsSoftDeleted = false
				row.IsDownloaded = true
			}); err != nil {
				return err
			}
			contactID := it.ID
			for i := range c.ContactEmails {
				if err := r.upsertEmail(&c.ContactEmails[i], &contactID); err != nil {
					return err
				}
			}
			r.done()
		default:
			r.skip("contact", it.ID, it.Action, "unknown action")
		}
	}
	return nil
}

// contactEmails handles standalone email events. They never create a contact
// and never touch the stored back-reference; only contact events link emails.
func (r *run) contactEmails(items []event.ContactEmailEvent) error {
	for _, it := range items {
		switch {
		case it.ID == "":
			r.skip("contact email", it.ID, it.Action, "missing id")
		case it.Action == event.Delete:
			if err := r.tx.DeleteContactEmail(r.userID, it.ID); err != nil {
				return err
			}
			r.done()
		case it.Action.IsUpsert():
			if !r.payloadOK("contact email", it.ID, it.Action, it.ContactEmail) {
				continue
			}
			e := *it.ContactEmail
			e.ID = it.ID
			if err := r.upsertEmail(&e, nil); err != nil {
				return err
			}
			r.done()
		default:
			r.skip("contact email", it.ID, it.Action, "unknown action")
		}
	}
	return nil
}

// upsertEmail writes one email. A nil contactID keeps the stored back-reference.
func (r *run) upsertEmail(e *event.ContactEmail, contactID *string) error {
	return r.tx.UpsertContactEmail(r.userID, e.ID, func(row *store.ContactEmail) {
		if contactID != nil {
			id := *contactID
			row.ContactID = &id
		}
		row.Email = e.Email
		row.Name = e.Name
		row.Type = codec.EncodeOr(r.codecs.Strings, e.Type, "type", r.logger)
		row.Defaults = e.Defaults
		row.Order = e.Order
		row.LastUsedTime = e.LastUsedTime
		row.LabelIDs, _ = labelset.Replace(row.LabelIDs, e.LabelIDs)
	})
}
