package registry

import "github.com/reglet-dev/reglet-addon-host/capability"

// SideEffect performs the host mutation that makes a unit live.
type SideEffect func() error

// Reversal undoes a SideEffect.
type Reversal func() error

// CapabilityRegistry tracks registered units and their reversals.
type CapabilityRegistry interface {
	// Register runs sideEffect and records the unit. It fails without
	// mutating anything if the id is taken or the side effect fails.
	Register(unit capability.Unit, sideEffect SideEffect, reversal Reversal) (Handle, error)

	// Unregister runs the entry's reversal and removes it.
	Unregister(h Handle) error

	// UnregisterAll unregisters every entry in reverse registration order.
	UnregisterAll() error

	// Find returns the unit registered under id.
	Find(id string) (capability.Unit, bool)
}
