package capability

// Request is a single permission an add-on asks for, as shown to a prompter.
type Request struct {
	AddonID       string
	Permission    Permission
	Justification string
	Description   string
	IsBroad       bool
}

// Requirement is the full set of permissions requested by an add-on.
type Requirement struct {
	Requested      PermissionSet
	Justifications map[Permission]string
	AddonID        string
}

// GatekeeperPort grants permissions based on security policy.
type GatekeeperPort interface {
	GrantPermissions(req Requirement, trustAll bool) (PermissionSet, error)
}

// GrantStore persists and retrieves granted permissions.
type GrantStore interface {
	Load() (*Grants, error)
	Save(grants *Grants) error
	ConfigPath() string
}

// Prompter handles interactive permission authorization.
type Prompter interface {
	IsInteractive() bool
	PromptForPermission(req Request) (granted bool, always bool, err error)
	FormatNonInteractiveError(addonID string, missing PermissionSet) error
}
