package event

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Action is the mutation kind carried by every event item.
type Action uint8

const (
	// Unknown is what any unrecognized wire value decodes to. Reconcilers always skip it.
	Unknown Action = iota
	Create
	Update
	Delete
	UpdateFlags
)

// Wire codes used by the mailbox event API.
const (
	wireDelete      = 0
	wireCreate      = 1
	wireUpdate      = 2
	wireUpdateFlags = 3
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case UpdateFlags:
		return "updateFlags"
	default:
		return "unknown"
	}
}

// ParseAction maps a textual action name to an Action.
func ParseAction(s string) Action {
	switch s {
	case "create":
		return Create
	case "update":
		return Update
	case "delete":
		return Delete
	case "updateFlags", "update_flags":
		return UpdateFlags
	}
	if n, err := strconv.Atoi(s); err == nil {
		return fromWire(n)
	}
	return Unknown
}

func fromWire(n int) Action {
	switch n {
	case wireDelete:
		return Delete
	case wireCreate:
		return Create
	case wireUpdate:
		return Update
	case wireUpdateFlags:
		return UpdateFlags
	default:
		return Unknown
	}
}

// MarshalJSON encodes the action as its numeric wire code.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a {
	case Delete:
		return []byte("0"), nil
	case Create:
		return []byte("1"), nil
	case Update:
		return []byte("2"), nil
	case UpdateFlags:
		return []byte("3"), nil
	default:
		return []byte("-1"), nil
	}
}

// UnmarshalJSON accepts numeric codes or names. It never fails on an
// unrecognized value: those become Unknown so only the item is skipped.
func (a *Action) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Unknown
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Unknown
			return nil
		}
		*a = ParseAction(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		*a = Unknown
		return nil
	}
	*a = fromWire(n)
	return nil
}

// IsUpsert reports whether the action creates or updates a row.
func (a Action) IsUpsert() bool {
	return a == Create || a == Update || a == UpdateFlags
}
