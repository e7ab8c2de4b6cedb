// Package event holds the wire model of one delivered event batch.
package event

// Well-known system label IDs.
const (
	LabelInbox       = "0"
	LabelHiddenDraft = "1"
	LabelHiddenSent  = "2"
	LabelTrash       = "3"
	LabelSpam        = "4"
	LabelAllMail     = "5"
	LabelArchive     = "6"
	LabelSent        = "7"
	LabelDraft       = "8"
	LabelStarred     = "10"
)

// Batch is one delivery of ordered change lists for a single user.
// Lists are applied in order within an entity type; entity types are applied
// labels, contacts, contact emails, conversations, messages.
type Batch struct {
	EventID             string              `json:"EventID,omitempty"`
	Labels              []LabelEvent        `json:"Labels,omitempty"`
	ContactsLightweight []ContactRef        `json:"ContactsLightweight,omitempty"`
	Contacts            []ContactEvent      `json:"Contacts,omitempty"`
	ContactEmails       []ContactEmailEvent `json:"ContactEmails,omitempty"`
	Conversations       []ConversationEvent `json:"Conversations,omitempty"`
	Messages            []MessageEvent      `json:"Messages,omitempty"`
}

// Size returns the total number of items in the batch.
func (b *Batch) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Labels) + len(b.ContactsLightweight) + len(b.Contacts) +
		len(b.ContactEmails) + len(b.Conversations) + len(b.Messages)
}

// LabelEvent changes one label.
type LabelEvent struct {
	ID     string `json:"ID"`
	Action Action `json:"Action"`
	Label  *Label `json:"Label,omitempty"`
}

// Label is the full label payload.
type Label struct {
	ID       string `json:"ID" validate:"required"`
	Name     string `json:"Name"`
	Path     string `json:"Path"`
	Type     int    `json:"Type"`
	Color    string `json:"Color"`
	Order    int    `json:"Order"`
	Notify   int    `json:"Notify"`
	Sticky   int    `json:"Sticky"`
	ParentID string `json:"ParentID,omitempty"`
}

// ContactRef is a lightweight contact event: the contact changed, but its
// detail must be fetched separately.
type ContactRef struct {
	ID     string `json:"ID"`
	Action Action `json:"Action"`
}

// ContactEvent changes one contact, with the full contact embedded.
type ContactEvent struct {
	ID      string   `json:"ID"`
	Action  Action   `json:"Action"`
	Contact *Contact `json:"Contact,omitempty"`
}

// Contact is the full contact payload.
type Contact struct {
	ID            string         `json:"ID" validate:"required"`
	Name          string         `json:"Name"`
	UID           string         `json:"UID"`
	Size          int64          `json:"Size"`
	CreateTime    int64          `json:"CreateTime"`
	ModifyTime    int64          `json:"ModifyTime"`
	Cards         []Card         `json:"Cards"`
	ContactEmails []ContactEmail `json:"ContactEmails" validate:"dive"`
}

// Card is one (possibly signed or encrypted) vCard attached to a contact.
type Card struct {
	Type      int    `json:"Type"`
	Data      string `json:"Data"`
	Signature string `json:"Signature,omitempty"`
}

// ContactEmailEvent changes one contact email outside of a contact payload.
type ContactEmailEvent struct {
	ID           string        `json:"ID"`
	Action       Action        `json:"Action"`
	ContactEmail *ContactEmail `json:"ContactEmail,omitempty"`
}

// ContactEmail is the full contact email payload.
type ContactEmail struct {
	ID           string   `json:"ID" validate:"required"`
	Name         string   `json:"Name"`
	Email        string   `json:"Email"`
	Type         []string `json:"Type"`
	Defaults     int      `json:"Defaults"`
	Order        int      `json:"Order"`
	ContactID    string   `json:"ContactID"`
	LabelIDs     []string `json:"LabelIDs"`
	LastUsedTime int64    `json:"LastUsedTime"`
}

// ConversationEvent changes one conversation.
type ConversationEvent struct {
	ID           string        `json:"ID"`
	Action       Action        `json:"Action"`
	Conversation *Conversation `json:"Conversation,omitempty"`
}

// Conversation is the full conversation payload. Labels is the conversation's
// current label list, each entry carrying the per-label statistics.
type Conversation struct {
	ID                     string               `json:"ID" validate:"required"`
	Order                  int64                `json:"Order"`
	Subject                string               `json:"Subject"`
	Senders                []Address            `json:"Senders"`
	Recipients             []Address            `json:"Recipients"`
	NumMessages            int                  `json:"NumMessages"`
	NumUnread              int                  `json:"NumUnread"`
	NumAttachments         int                  `json:"NumAttachments"`
	ExpirationTime         int64                `json:"ExpirationTime"`
	Size                   int64                `json:"Size"`
	Labels                 []ContextLabel       `json:"Labels" validate:"dive"`
	AttachmentsMetadata    []AttachmentMetadata `json:"AttachmentsMetadata"`
	DisplaySnoozedReminder bool                 `json:"DisplaySnoozedReminder"`
}

// LabelIDs returns the conversation's current label list.
func (c *Conversation) LabelIDs() []string {
	ids := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		ids = append(ids, l.ID)
	}
	return ids
}

// ContextLabel carries a conversation's statistics within one label.
type ContextLabel struct {
	ID                    string `json:"ID" validate:"required"`
	ContextNumMessages    int    `json:"ContextNumMessages"`
	ContextNumUnread      int    `json:"ContextNumUnread"`
	ContextTime           int64  `json:"ContextTime"`
	ContextExpirationTime int64  `json:"ContextExpirationTime"`
	ContextSize           int64  `json:"ContextSize"`
	ContextNumAttachments int    `json:"ContextNumAttachments"`
	ContextSnoozeTime     int64  `json:"ContextSnoozeTime"`
}

// MessageEvent changes one message.
type MessageEvent struct {
	ID      string   `json:"ID"`
	Action  Action   `json:"Action"`
	Message *Message `json:"Message,omitempty"`
}

// Message is the message metadata payload. LabelIDs is the canonical current
// label list; LabelIDsAdded/LabelIDsRemoved, when present, form an explicit diff.
type Message struct {
	ID                  string               `json:"ID" validate:"required"`
	Order               int64                `json:"Order"`
	ConversationID      string               `json:"ConversationID"`
	Subject             string               `json:"Subject"`
	Unread              int                  `json:"Unread"`
	Sender              *Address             `json:"Sender"`
	Flags               int64                `json:"Flags"`
	IsReplied           int                  `json:"IsReplied"`
	IsRepliedAll        int                  `json:"IsRepliedAll"`
	IsForwarded         int                  `json:"IsForwarded"`
	ToList              []Address            `json:"ToList"`
	CCList              []Address            `json:"CCList"`
	BCCList             []Address            `json:"BCCList"`
	Time                int64                `json:"Time"`
	Size                int64                `json:"Size"`
	NumAttachments      int                  `json:"NumAttachments"`
	ExpirationTime      int64                `json:"ExpirationTime"`
	AddressID           string               `json:"AddressID"`
	LabelIDs            []string             `json:"LabelIDs"`
	LabelIDsAdded       []string             `json:"LabelIDsAdded,omitempty"`
	LabelIDsRemoved     []string             `json:"LabelIDsRemoved,omitempty"`
	AttachmentsMetadata []AttachmentMetadata `json:"AttachmentsMetadata"`
	SnoozeTime          int64                `json:"SnoozeTime"`
}

// HasLabelDiff reports whether the payload carries an explicit add/remove diff.
func (m *Message) HasLabelDiff() bool {
	return m.LabelIDsAdded != nil || m.LabelIDsRemoved != nil
}

// Address is a display name and email pair.
type Address struct {
	Name     string `json:"Name"`
	Address  string `json:"Address"`
	IsProton int    `json:"IsProton,omitempty"`
}

// AttachmentMetadata describes one attachment without its content.
type AttachmentMetadata struct {
	ID          string `json:"ID"`
	Name        string `json:"Name"`
	Size        int64  `json:"Size"`
	MIMEType    string `json:"MIMEType"`
	Disposition string `json:"Disposition,omitempty"`
}
