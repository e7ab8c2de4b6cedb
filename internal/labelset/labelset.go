// Package labelset computes label membership changes for messages,
// conversations and contact emails.
package labelset

import "sort"

// Set is an owned set of label IDs.
type Set map[string]struct{}

// New returns a set holding ids.
func New(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// HasAny reports whether any of ids is a member.
func (s Set) HasAny(ids ...string) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Diff is an explicit membership change. Nil slices behave as empty.
type Diff struct {
	Added   []string
	Removed []string
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Apply returns (current ∪ added) \ removed. An id both added and removed
// ends up removed. current is not modified.
func Apply(current Set, d Diff) Set {
	out := current.Clone()
	for _, id := range d.Added {
		out[id] = struct{}{}
	}
	for _, id := range d.Removed {
		delete(out, id)
	}
	return out
}

// Replace returns the set described by canonical and whether it differs
// from current.
func Replace(current Set, canonical []string) (Set, bool) {
	next := New(canonical...)
	if next.Equal(current) {
		return current, false
	}
	return next, true
}

// Changes returns the memberships to add and remove to turn current into next.
func Changes(current, next Set) Diff {
	var d Diff
	for id := range next {
		if !current.Has(id) {
			d.Added = append(d.Added, id)
		}
	}
	for id := range current {
		if !next.Has(id) {
			d.Removed = append(d.Removed, id)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	return d
}
