package capability

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownPermission is returned for names outside the vocabulary.
var ErrUnknownPermission = errors.New("unknown permission")

// Permission names a guarded host resource. The vocabulary is closed.
type Permission string

const (
	PermNetwork     Permission = "network"
	PermFilesRead   Permission = "files.read"
	PermFilesWrite  Permission = "files.write"
	PermSubprocess  Permission = "subprocess"
	PermClipboard   Permission = "clipboard"
	PermKeymap      Permission = "keymap"
	PermTimers      Permission = "timers"
	PermPreferences Permission = "preferences"
)

var vocabulary = []Permission{
	PermNetwork,
	PermFilesRead,
	PermFilesWrite,
	PermSubprocess,
	PermClipboard,
	PermKeymap,
	PermTimers,
	PermPreferences,
}

// Vocabulary returns every known permission.
func Vocabulary() []Permission { return slices.Clone(vocabulary) }

// ParsePermission validates a permission name.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !slices.Contains(vocabulary, p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	s.Add(perms...)
	return s
}

// Add inserts permissions into the set.
func (s PermissionSet) Add(perms ...Permission) {
	for _, p := range perms {
		s[p] = struct{}{}
	}
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// IsEmpty reports whether the set has no members.
func (s PermissionSet) IsEmpty() bool { return len(s) == 0 }

// Merge adds every member of other.
func (s PermissionSet) Merge(other PermissionSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Difference returns the members of s that are not in other.
func (s PermissionSet) Difference(other PermissionSet) PermissionSet {
	out := make(PermissionSet)
	for p := range s {
		if !other.Has(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Clone copies the set.
func (s PermissionSet) Clone() PermissionSet {
	if s == nil {
		return make(PermissionSet)
	}
	return maps.Clone(s)
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []Permission {
	return slices.Sorted(maps.Keys(s))
}
