package reconcile

import (
	"github.com/matheus3301/mailsync/internal/codec"
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/labelset"
	"github.com/matheus3301/mailsync/internal/store"
)

var draftLabels = []string{event.LabelDraft, event.LabelHiddenDraft}

func (r *run) messages(items []event.MessageEvent) error {
	for _, it := range items {
		switch {
		case it.ID == "":
			r.skip("message", it.ID, it.Action, "missing id")
		case it.Action == event.Delete:
			if err := r.tx.DeleteMessage(r.userID, it.ID); err != nil {
				return err
			}
			r.done()
		case it.Action.IsUpsert():
			if !r.payloadOK("message", it.ID, it.Action, it.Message) {
				continue
			}
			if err := r.upsertMessage(it); err != nil {
				return err
			}
		default:
			r.skip("message", it.ID, it.Action, "unknown action")
		}
	}
	return nil
}

func (r *run) upsertMessage(it event.MessageEvent) error {
	m := it.Message
	stored, err := r.tx.Message(r.userID, it.ID)
	if err != nil {
		return err
	}

	if isDraft(m, stored) {
		if r.guard.inFlight(r.ctx, r.userID, it.ID) {
			r.skip("message", it.ID, it.Action, "draft has a pending send")
			return nil
		}
		if err := r.tx.UpsertMessage(r.userID, it.ID, func(row *store.Message) { r.applyDraft(row, m) }); err != nil {
			return err
		}
		r.done()
		return nil
	}

	if err := r.tx.UpsertMessage(r.userID, it.ID, func(row *store.Message) { r.applyFull(row, m) }); err != nil {
		return err
	}
	r.done()
	return nil
}

// isDraft checks the event's label list, or when the event carries none, the
// stored labels with the event's diff applied.
func isDraft(m *event.Message, stored *store.Message) bool {
	if m.LabelIDs != nil {
		return labelset.New(m.LabelIDs...).HasAny(draftLabels...)
	}
	var current labelset.Set
	if stored != nil {
		current = stored.LabelIDs
	}
	return labelset.Apply(current, messageDiff(m)).HasAny(draftLabels...)
}

func messageDiff(m *event.Message) labelset.Diff {
	return labelset.Diff{Added: m.LabelIDsAdded, Removed: m.LabelIDsRemoved}
}

// applyDraft writes the fields a draft edit may change. Labels follow the
// explicit diff, or the canonical list when the event has no diff.
func (r *run) applyDraft(row *store.Message, m *event.Message) {
	row.Title = m.Subject
	row.ToList = codec.EncodeOr(r.codecs.Addresses, m.ToList, "to_list", r.logger)
	row.CCList = codec.EncodeOr(r.codecs.Addresses, m.CCList, "cc_list", r.logger)
	row.BCCList = codec.EncodeOr(r.codecs.Addresses, m.BCCList, "bcc_list", r.logger)
	row.Time = m.Time
	row.ConversationID = m.ConversationID
	row.AttachmentsMetadata = codec.EncodeOr(r.codecs.Attachments, m.AttachmentsMetadata, "attachments_metadata", r.logger)
	row.NumAttachments = m.NumAttachments
	switch {
	case m.HasLabelDiff():
		row.LabelIDs = labelset.Apply(row.LabelIDs, messageDiff(m))
	case m.LabelIDs != nil:
		row.LabelIDs, _ = labelset.Replace(row.LabelIDs, m.LabelIDs)
	}
}

// applyFull writes every field of an ordinary message. After the explicit
// diff, the event's canonical label list wins if the two disagree.
func (r *run) applyFull(row *store.Message, m *event.Message) {
	row.Order = m.Order
	row.ConversationID = m.ConversationID
	row.Title = m.Subject
	row.Unread = flag(m.Unread)
	row.Sender = codec.EncodeOr(r.codecs.Address, m.Sender, "sender", r.logger)
	row.Flags = m.Flags
	row.Replied = flag(m.IsReplied)
	row.RepliedAll = flag(m.IsRepliedAll)
	row.Forwarded = flag(m.IsForwarded)
	row.ToList = codec.EncodeOr(r.codecs.Addresses, m.ToList, "to_list", r.logger)
	row.CCList = codec.EncodeOr(r.codecs.Addresses, m.CCList, "cc_list", r.logger)
	row.BCCList = codec.EncodeOr(r.codecs.Addresses, m.BCCList, "bcc_list", r.logger)
	row.Time = m.Time
	row.Size = m.Size
	row.NumAttachments = m.NumAttachments
	row.ExpirationTime = nonZero(m.ExpirationTime)
	row.AddressID = m.AddressID
	row.AttachmentsMetadata = codec.EncodeOr(r.codecs.Attachments, m.AttachmentsMetadata, "attachments_metadata", r.logger)
	row.SnoozeTime = nonZero(m.SnoozeTime)

	if m.HasLabelDiff() {
		row.LabelIDs = labelset.Apply(row.LabelIDs, messageDiff(m))
	}
	if m.LabelIDs != nil {
		row.LabelIDs, _ = labelset.Replace(row.LabelIDs, m.LabelIDs)
	}
	row.Status = store.MessageStatusFull
}
