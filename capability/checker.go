package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPermissionDenied is returned when an add-on uses a permission it was not
// granted.
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError records which add-on was refused which permission.
type DeniedError struct {
	AddonID    string
	Permission Permission
	Reason     string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s denied for %s", e.Reason, e.Permission, e.AddonID)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, capability.ErrPermissionDenied)
func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// DenialHandler is called when a permission is denied.
// It allows custom logging or auditing.
type DenialHandler func(ctx context.Context, addonID string, perm Permission, message string)

// CheckerOption configures a Checker.
type CheckerOption func(*checkerConfig)

type checkerConfig struct {
	denialHandler DenialHandler
}

// WithDenialHandler sets the handler for denied permissions.
func WithDenialHandler(handler DenialHandler) CheckerOption {
	return func(c *checkerConfig) {
		c.denialHandler = handler
	}
}

// Checker enforces granted permissions at runtime.
type Checker struct {
	granted       map[string]PermissionSet
	denialHandler DenialHandler
	mu            sync.RWMutex
}

// NewChecker creates an empty checker; every check fails until Grant is
// called for the add-on.
func NewChecker(opts ...CheckerOption) *Checker {
	var cfg checkerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Checker{
		granted:       make(map[string]PermissionSet),
		denialHandler: cfg.denialHandler,
	}
}

// Grant replaces the permissions granted to an add-on.
func (c *Checker) Grant(addonID string, perms PermissionSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted[addonID] = perms.Clone()
}

// Revoke forgets every permission of an add-on.
func (c *Checker) Revoke(addonID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.granted, addonID)
}

// Granted returns a copy of the add-on's permissions.
func (c *Checker) Granted(addonID string) PermissionSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.granted[addonID].Clone()
}

// Check returns a *DeniedError unless addonID holds perm.
func (c *Checker) Check(ctx context.Context, addonID string, perm Permission) error {
	c.mu.RLock()
	perms, ok := c.granted[addonID]
	c.mu.RUnlock()

	if !ok {
		return c.handleDeny(ctx, addonID, perm, "no permissions granted")
	}
	if perms.Has(perm) {
		return nil
	}
	return c.handleDeny(ctx, addonID, perm, "permission not granted")
}

// Require checks perm for the add-on carried by ctx. A context without an
// add-on id belongs to the host itself and is always allowed.
func (c *Checker) Require(ctx context.Context, perm Permission) error {
	addonID, ok := AddonIDFromContext(ctx)
	if !ok {
		return nil
	}
	return c.Check(ctx, addonID, perm)
}

func (c *Checker) handleDeny(ctx context.Context, addonID string, perm Permission, message string) error {
	err := &DeniedError{AddonID: addonID, Permission: perm, Reason: message}
	if c.denialHandler != nil {
		c.denialHandler(ctx, addonID, perm, err.Error())
	}
	return err
}

// Context helpers for add-on id propagation
type contextKey struct {
	name string
}

var addonIDContextKey = &contextKey{name: "addon_id"}

// WithAddonID adds the add-on id to the context.
func WithAddonID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, addonIDContextKey, id)
}

// AddonIDFromContext retrieves the add-on id from the context.
func AddonIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(addonIDContextKey).(string)
	return id, ok
}
