// Package gatekeeper handles permission granting: loads stored grants,
// diffs against required, prompts for missing, persists decisions.
package gatekeeper

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/capability/grantstore"
)

var (
	// ErrDenied is returned when a permission is refused by the user or policy.
	ErrDenied = errors.New("permission denied")

	// ErrNonInteractive is returned when permissions are missing and nobody
	// can be asked.
	ErrNonInteractive = errors.New("permissions missing in non-interactive mode")
)

// SecurityLevel controls the gatekeeper's prompting behavior.
type SecurityLevel string

const (
	SecurityStrict     SecurityLevel = "strict"
	SecurityStandard   SecurityLevel = "standard"
	SecurityPermissive SecurityLevel = "permissive"
)

// ParseSecurityLevel validates a security level name.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	switch l := SecurityLevel(s); l {
	case SecurityStrict, SecurityStandard, SecurityPermissive:
		return l, nil
	}
	return "", fmt.Errorf("unknown security level %q", s)
}

// Gatekeeper handles permission granting: loads stored grants,
// diffs against required, prompts for missing, persists decisions.
type Gatekeeper struct {
	store         capability.GrantStore
	prompter      capability.Prompter
	logger        *slog.Logger
	securityLevel SecurityLevel
}

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithStore sets the grant store.
func WithStore(s capability.GrantStore) Option {
	return func(g *Gatekeeper) { g.store = s }
}

// WithPrompter sets the prompter.
func WithPrompter(p capability.Prompter) Option {
	return func(g *Gatekeeper) { g.prompter = p }
}

// WithSecurityLevel sets the security policy level.
func WithSecurityLevel(level SecurityLevel) Option {
	return func(g *Gatekeeper) { g.securityLevel = level }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gatekeeper) { g.logger = l }
}

// NewGatekeeper creates a permission gatekeeper with pluggable store and prompter.
func NewGatekeeper(opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		securityLevel: SecurityStandard,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.store == nil {
		g.store = grantstore.NewFileStore()
	}
	if g.prompter == nil {
		g.prompter = NewTerminalPrompter()
	}
	return g
}

// GrantPermissions determines which of the requested permissions to grant
// based on security policy, user input and saved grants. It returns the
// permissions the add-on may use, or an error if any requested permission
// is refused.
func (g *Gatekeeper) GrantPermissions(req capability.Requirement, trustAll bool) (capability.PermissionSet, error) {
	if req.Requested.IsEmpty() {
		return capability.NewPermissionSet(), nil
	}

	// If trustAll flag is set, grant everything
	if trustAll {
		g.logger.Warn("auto-granting all requested permissions (trust-all enabled)", "addon", req.AddonID)
		return req.Requested.Clone(), nil
	}

	stored, err := g.store.Load()
	if err != nil {
		g.logger.Warn("ignoring unreadable grant store", "path", g.store.ConfigPath(), "error", err)
		stored = &capability.Grants{}
	}

	granted := stored.Allowed(req.AddonID)
	missing := req.Requested.Difference(granted)
	if missing.IsEmpty() {
		return req.Requested.Clone(), nil
	}

	missingReq := capability.Requirement{
		AddonID:        req.AddonID,
		Requested:      missing,
		Justifications: req.Justifications,
	}

	needsPrompt := false
	for _, r := range missingReq.Requests() {
		if !g.decidedByPolicy(r) {
			needsPrompt = true
			break
		}
	}
	if needsPrompt && !g.prompter.IsInteractive() {
		return nil, g.prompter.FormatNonInteractiveError(req.AddonID, missing)
	}

	toSave := capability.NewPermissionSet()
	for _, r := range missingReq.Requests() {
		ok, always, err := g.evaluateWithSecurityLevel(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w by user: %s", ErrDenied, r.Description)
		}
		granted.Add(r.Permission)
		if always {
			toSave.Add(r.Permission)
		}
	}

	// Save to config if user chose "always" for any permission
	if !toSave.IsEmpty() {
		updated := stored.Clone()
		updated.Grant(req.AddonID, toSave)
		if err := g.store.Save(updated); err != nil {
			g.logger.Warn("failed to save grants", "path", g.store.ConfigPath(), "error", err)
		} else {
			g.logger.Info("permissions saved", "path", g.store.ConfigPath(), "addon", req.AddonID)
		}
	}

	out := req.Requested.Clone()
	for p := range out {
		if !granted.Has(p) {
			delete(out, p)
		}
	}
	return out, nil
}

// decidedByPolicy reports whether the security level settles r without
// asking anyone.
func (g *Gatekeeper) decidedByPolicy(r capability.Request) bool {
	if g.securityLevel == SecurityPermissive {
		return true
	}
	return r.IsBroad && g.securityLevel == SecurityStrict
}

// evaluateWithSecurityLevel applies security level policy and prompts if needed.
func (g *Gatekeeper) evaluateWithSecurityLevel(req capability.Request) (bool, bool, error) {
	report := capability.AnalyzeRisk(capability.NewPermissionSet(req.Permission))
	riskDesc := ""
	if len(report.RiskFactors) > 0 {
		riskDesc = report.RiskFactors[0].Description
	}

	if req.IsBroad {
		switch g.securityLevel {
		case SecurityStrict:
			if riskDesc == "" {
				riskDesc = "broad access beyond what may be necessary"
			}
			g.logger.Error("broad permission denied by security policy",
				"level", "strict",
				"permission", req.Description,
				"risk", riskDesc)
			return false, false, fmt.Errorf("%w: broad permission refused by strict security policy: %s", ErrDenied, req.Description)

		case SecurityPermissive:
			g.logger.Warn("auto-granting broad permission (permissive mode)",
				"permission", req.Description)
			return true, false, nil
		}
	}

	if g.securityLevel == SecurityPermissive {
		return true, false, nil
	}

	return g.prompter.PromptForPermission(req)
}
