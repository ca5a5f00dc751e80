package capability

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Extract turns the permission declarations of a manifest (permission name to
// justification) into a Requirement. Unknown names are reported together;
// the returned requirement still carries every known permission.
func Extract(addonID string, declared map[string]string) (Requirement, error) {
	req := Requirement{
		AddonID:        addonID,
		Requested:      make(PermissionSet, len(declared)),
		Justifications: make(map[Permission]string, len(declared)),
	}

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(declared)) {
		p, err := ParsePermission(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addonID, err))
			continue
		}
		req.Requested.Add(p)
		req.Justifications[p] = declared[name]
	}
	return req, errors.Join(errs...)
}

// Requests expands a requirement into one prompt request per permission,
// in lexical order.
func (r Requirement) Requests() []Request {
	out := make([]Request, 0, len(r.Requested))
	for _, p := range r.Requested.Sorted() {
		report := AnalyzeRisk(NewPermissionSet(p))
		out = append(out, Request{
			AddonID:       r.AddonID,
			Permission:    p,
			Justification: r.Justifications[p],
			Description:   fmt.Sprintf("%s: %s", r.AddonID, p),
			IsBroad:       report.Level >= RiskCritical,
		})
	}
	return out
}
