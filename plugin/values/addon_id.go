// Package values holds validated value objects for add-on identity.
package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AddonID represents a validated add-on identifier such as "studio.node_tools".
type AddonID struct {
	value string
}

// NewAddonID creates an AddonID with strict validation.
// A valid add-on id must:
// - Be non-empty and at most 64 characters long
// - Start with a letter
// - contain only alphanumeric characters, underscores, hyphens and dots
// - NOT contain path separators, empty segments or a trailing dot
func NewAddonID(id string) (AddonID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AddonID{}, fmt.Errorf("add-on id cannot be empty")
	}

	if len(id) > 64 {
		return AddonID{}, fmt.Errorf("add-on id too long (max 64 chars)")
	}

	// Security check: Path separators
	if strings.ContainsAny(id, `/\`) {
		return AddonID{}, fmt.Errorf("add-on id cannot contain path separators")
	}

	// Dots separate namespace segments; none may be empty
	if strings.Contains(id, "..") || strings.HasSuffix(id, ".") {
		return AddonID{}, fmt.Errorf("invalid add-on id %q: empty namespace segment", id)
	}

	if !isLetter(rune(id[0])) {
		return AddonID{}, fmt.Errorf("invalid add-on id %q: must start with a letter", id)
	}

	for _, ch := range id {
		if !isValidIDChar(ch) {
			return AddonID{}, fmt.Errorf("invalid add-on id %q: must contain only alphanumeric characters, underscores, hyphens and dots", id)
		}
	}

	return AddonID{value: id}, nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isValidIDChar(r rune) bool {
	return isLetter(r) ||
		(r >= '0' && r <= '9') ||
		r == '_' ||
		r == '-' ||
		r == '.'
}

// MustNewAddonID creates an AddonID or panics
func MustNewAddonID(id string) AddonID {
	a, err := NewAddonID(id)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the string representation
func (a AddonID) String() string {
	return a.value
}

// Namespace returns everything before the last dot, or "" for flat ids.
func (a AddonID) Namespace() string {
	i := strings.LastIndexByte(a.value, '.')
	if i < 0 {
		return ""
	}
	return a.value[:i]
}

// IsEmpty returns true if this is the zero value
func (a AddonID) IsEmpty() bool {
	return a.value == ""
}

// Equals checks if two ids are equal
func (a AddonID) Equals(other AddonID) bool {
	return a.value == other.value
}

// MarshalJSON implements json.Marshaler.
func (a AddonID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (a *AddonID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid add-on id JSON: %w", err)
	}

	id, err := NewAddonID(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}
