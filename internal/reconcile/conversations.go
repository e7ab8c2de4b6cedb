package reconcile

import (
	"github.com/matheus3301/mailsync/internal/codec"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/labelset"
	"github.com/matheus3301/mailsync/internal/store"
)

// conversations applies conversation events. updateFlags is handled exactly
// like update.
func (r *run) conversations(items []event.ConversationEvent) error {
	for _, it := range items {
		switch {
		case it.ID == "":
			r.skip("conversation", it.ID, it.Action, "missing id")
		case it.Action == event.Delete:
			if err := r.tx.DeleteConversation(r.userID, it.ID); err != nil {
				return err
			}
			r.done()
		case it.Action.IsUpsert():
			if !r.payloadOK("conversation", it.ID, it.Action, it.Conversation) {
				continue
			}
			if err := r.upsertConversation(it.ID, it.Conversation); err != nil {
				return err
			}
			r.done()
		default:
			r.skip("conversation", it.ID, it.Action, "unknown action")
		}
	}
	return nil
}

func (r *run) upsertConversation(id string, c *event.Conversation) error {
	if err := r.tx.UpsertConversation(r.userID, id, func(row *store.Conversation) {
		row.Subject = c.Subject
		row.Order = c.Order
		row.Senders = codec.EncodeOr(r.codecs.Addresses, c.Senders, "senders", r.logger)
		row.Recipients = codec.EncodeOr(r.codecs.Addresses, c.Recipients, "recipients", r.logger)
		row.AttachmentsMetadata = codec.EncodeOr(r.codecs.Attachments, c.AttachmentsMetadata, "attachments_metadata", r.logger)
		row.NumMessages = c.NumMessages
		row.NumUnread = c.NumUnread
		row.NumAttachments = c.NumAttachments
		row.Size = c.Size
		row.ExpirationTime = nonZero(c.ExpirationTime)
		row.DisplaySnoozedReminder = c.DisplaySnoozedReminder
	}); err != nil {
		return err
	}
	return r.syncContextLabels(id, c)
}

// syncContextLabels makes the conversation's context labels exactly the
// labels in its current label list.
func (r *run) syncContextLabels(id string, c *event.Conversation) error {
	current := labelset.New(c.LabelIDs()...)
	for _, l := range c.Labels {
		if err := r.tx.UpsertContextLabel(r.userID, id, l.ID, func(row *store.ContextLabel) {
			row.MessageCount = l.ContextNumMessages
			row.UnreadCount = l.ContextNumUnread
			row.Time = l.ContextTime
			row.ExpirationTime = nonZero(l.ContextExpirationTime)
			row.Size = l.ContextSize
			row.AttachmentCount = l.ContextNumAttachments
			row.Order = c.Order
			row.SnoozeTime = nonZero(l.ContextSnoozeTime)
		}); err != nil {
			return err
		}
	}

	stored, err := r.tx.ContextLabels(r.userID, id)
	if err != nil {
		return err
	}
	for _, cl := range stored {
		if current.Has(cl.LabelID) {
			continue
		}
		if err := r.tx.DeleteContextLabel(r.userID, id, cl.LabelID); err != nil {
			return err
		}
	}
	return nil
}
