package capability

import (
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// GrantRule grants permissions to every add-on whose id matches Addon.
// Addon is a doublestar pattern, so "studio.*" covers a whole family.
type GrantRule struct {
	Addon       string       `yaml:"addon"`
	Permissions []Permission `yaml:"permissions"`
}

// Grants is the persisted set of "always allow" decisions.
type Grants struct {
	Rules []GrantRule `yaml:"rules"`
}

// Allowed returns every permission granted to addonID by any matching rule.
// Rules with malformed patterns never match.
func (g *Grants) Allowed(addonID string) PermissionSet {
	out := make(PermissionSet)
	if g == nil {
		return out
	}
	for _, r := range g.Rules {
		if ok, err := doublestar.Match(r.Addon, addonID); err == nil && ok {
			out.Add(r.Permissions...)
		}
	}
	return out
}

// Grant records perms for an exact add-on id, merging into an existing rule
// with the same pattern.
func (g *Grants) Grant(addonID string, perms PermissionSet) {
	for i := range g.Rules {
		if g.Rules[i].Addon == addonID {
			merged := NewPermissionSet(g.Rules[i].Permissions...)
			merged.Merge(perms)
			g.Rules[i].Permissions = merged.Sorted()
			return
		}
	}
	g.Rules = append(g.Rules, GrantRule{Addon: addonID, Permissions: perms.Sorted()})
}

// Clone returns a deep copy.
func (g *Grants) Clone() *Grants {
	if g == nil {
		return &Grants{}
	}
	out := &Grants{Rules: make([]GrantRule, len(g.Rules))}
	for i, r := range g.Rules {
		out.Rules[i] = GrantRule{Addon: r.Addon, Permissions: slices.Clone(r.Permissions)}
	}
	return out
}

// Deduplicate merges rules with identical patterns and sorts their
// permissions.
func (g *Grants) Deduplicate() {
	byAddon := make(map[string]int, len(g.Rules))
	rules := g.Rules[:0]
	for _, r := range g.Rules {
		if i, ok := byAddon[r.Addon]; ok {
			merged := NewPermissionSet(rules[i].Permissions...)
			merged.Add(r.Permissions...)
			rules[i].Permissions = merged.Sorted()
			continue
		}
		byAddon[r.Addon] = len(rules)
		r.Permissions = NewPermissionSet(r.Permissions...).Sorted()
		rules = append(rules, r)
	}
	g.Rules = rules
}
