package entities

import (
	"fmt"
	"slices"
	"time"
)

// EnabledSet is the aggregate root for the persisted list of enabled add-ons.
// Entries keep their enable order so they can be restored in the same order.
//
// Invariants:
// - Each entry must have an id and a version
// - Ids are unique
// - Generated timestamp must be set when entries exist
type EnabledSet struct {
	Generated time.Time
	Addons    []EnabledAddon
	Version   int
}

// EnabledAddon is a value object for one enabled add-on.
// Immutable after creation.
type EnabledAddon struct {
	EnabledAt time.Time
	ID        string
	Version   string
	// Source is the manifest path the add-on was enabled from, if any.
	Source string
}

// NewEnabledSet creates a new enabled set with the current format version.
func NewEnabledSet() *EnabledSet {
	return &EnabledSet{
		Version:   1,
		Generated: time.Now().UTC(),
	}
}

// Add appends an entry, replacing an existing entry with the same id in
// place. Returns error if id or version is empty (invariant enforcement).
func (s *EnabledSet) Add(entry EnabledAddon) error {
	if entry.ID == "" {
		return fmt.Errorf("enabled add-on: id is required")
	}
	if entry.Version == "" {
		return fmt.Errorf("add-on %q: version is required", entry.ID)
	}
	if i := s.index(entry.ID); i >= 0 {
		s.Addons[i] = entry
		return nil
	}
	s.Addons = append(s.Addons, entry)
	return nil
}

// Remove deletes the entry for id and reports whether it was present.
func (s *EnabledSet) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.Addons = slices.Delete(s.Addons, i, i+1)
	return true
}

// Get retrieves an entry by id.
// Returns nil if not found.
func (s *EnabledSet) Get(id string) *EnabledAddon {
	if i := s.index(id); i >= 0 {
		entry := s.Addons[i]
		return &entry
	}
	return nil
}

// IDs returns the enabled ids in enable order.
func (s *EnabledSet) IDs() []string {
	ids := make([]string, len(s.Addons))
	for i, a := range s.Addons {
		ids[i] = a.ID
	}
	return ids
}

// Count returns the number of enabled add-ons.
func (s *EnabledSet) Count() int {
	return len(s.Addons)
}

// Validate checks enabled set invariants.
func (s *EnabledSet) Validate() error {
	if s.Count() > 0 && s.Generated.IsZero() {
		return fmt.Errorf("generated timestamp is required")
	}
	seen := make(map[string]struct{}, len(s.Addons))
	for _, a := range s.Addons {
		if a.ID == "" {
			return fmt.Errorf("enabled add-on: id is required")
		}
		if a.Version == "" {
			return fmt.Errorf("add-on %q: version is required", a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("add-on %q: listed twice", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

func (s *EnabledSet) index(id string) int {
	return slices.IndexFunc(s.Addons, func(a EnabledAddon) bool { return a.ID == id })
}
