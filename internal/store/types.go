package store

import "github.com/matheus3301/mailsync/internal/labelset"

// MessageStatus tracks how much of a message the cache holds.
type MessageStatus int

const (
	MessageStatusInit MessageStatus = 0
	// MessageStatusFull marks metadata fully reconciled from an event payload.
	MessageStatusFull MessageStatus = 1
)

// Label is a cached folder or label.
type Label struct {
	UserID   string
	ID       string
	Name     string
	Path     string
	Type     int
	Color    string
	Order    int
	Notify   bool
	Sticky   bool
	ParentID *string
}

// Contact is a cached address-book entry. CardData is the serialized card list.
type Contact struct {
	UserID        string
	ID            string
	Name          string
	UID           string
	Size          int64
	CreateTime    int64
	ModifyTime    int64
	CardData      string
	IsSoftDeleted bool
	IsDownloaded  bool
}

// ContactEmail is a cached email address. ContactID is a weak back-reference
// and is nil when the owning contact is not known locally.
type ContactEmail struct {
	UserID       string
	ID           string
	ContactID    *string
	Email        string
	Name         string
	Type         string
	Defaults     int
	Order        int
	LastUsedTime int64
	LabelIDs     labelset.Set
}

// Conversation is a cached thread. Senders, Recipients and
// AttachmentsMetadata are serialized blobs.
type Conversation struct {
	UserID                 string
	ID                     string
	Subject                string
	Order                  int64
	Senders                string
	Recipients             string
	AttachmentsMetadata    string
	NumMessages            int
	NumUnread              int
	NumAttachments         int
	Size                   int64
	ExpirationTime         *int64
	DisplaySnoozedReminder bool
}

// ContextLabel holds a conversation's statistics within one label.
type ContextLabel struct {
	UserID          string
	ConversationID  string
	LabelID         string
	MessageCount    int
	UnreadCount     int
	Time            int64
	ExpirationTime  *int64
	Size            int64
	AttachmentCount int
	Order           int64
	SnoozeTime      *int64
}

// Message is cached message metadata. Sender, the recipient lists and
// AttachmentsMetadata are serialized blobs.
type Message struct {
	UserID              string
	ID                  string
	Order               int64
	ConversationID      string
	Title               string
	Unread              bool
	Sender              string
	Flags               int64
	Replied             bool
	RepliedAll          bool
	Forwarded           bool
	ToList              string
	CCList              string
	BCCList             string
	Time                int64
	Size                int64
	NumAttachments      int
	ExpirationTime      *int64
	AddressID           string
	AttachmentsMetadata string
	SnoozeTime          *int64
	LabelIDs            labelset.Set
	Status              MessageStatus
}

// Action kinds on the outgoing queue.
const (
	ActionSend      = "send"
	ActionSaveDraft = "save_draft"
	ActionLabel     = "label"
	ActionUnlabel   = "unlabel"
	ActionRead      = "read"
	ActionUnread    = "unread"
	ActionDelete    = "delete"
)

// Outgoing action statuses.
const (
	ActionQueued  = "queued"
	ActionRunning = "running"
	ActionDone    = "done"
	ActionFailed  = "failed"
)

// OutgoingAction is a locally-initiated mutation waiting to reach the server.
type OutgoingAction struct {
	ID           string
	UserID       string
	MessageID    string
	Kind         string
	Status       string // queued, running, done, failed
	ErrorMessage string
	CreatedAt    int64
}
