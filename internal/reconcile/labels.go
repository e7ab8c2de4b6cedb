package reconcile

import (
	"github.com/matheus3301/mailsync/internal/event"
	"github.com/matheus3301/mailsync/internal/store"
)

func (r *run) labels(items []event.LabelEvent) error {
	for _, it := range items {
		switch {
		case it.ID == "":
			r.skip("label", it.ID, it.Action, "missing id")
		case it.Action == event.Delete:
			if err := r.tx.DeleteLabel(r.userID, it.ID); err != nil {
				return err
			}
			r.done()
		case it.Action.IsUpsert():
			if !r.payloadOK("label", it.ID, it.Action, it.Label) {
				continue
			}
			l := it.Label
			if err := r.tx.UpsertLabel(r.userID, it.ID, func(row *store.Label) {
				row.Name = l.Name
				row.Path = l.Path
				row.Type = l.Type
				row.Color = l.Color
				row.Order = l.Order
				row.Notify = flag(l.Notify)
				row.Sticky = flag(l.Sticky)
				row.ParentID = nil
				if l.ParentID != "" {
					parent := l.ParentID
					row.ParentID = &parent
				}
			}); err != nil {
				return err
			}
			r.done()
		default:
			r.skip("label", it.ID, it.Action, "unknown action")
		}
	}
	return nil
}
