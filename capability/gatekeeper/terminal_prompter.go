package gatekeeper

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/reglet-dev/reglet-addon-host/capability"
)

// TerminalPrompter provides interactive terminal prompting for permission grants.
type TerminalPrompter struct {
	out io.Writer
}

// NewTerminalPrompter creates a new TerminalPrompter writing warnings to stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{out: os.Stderr}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// PromptForPermission asks the user to grant a permission.
func (p *TerminalPrompter) PromptForPermission(req capability.Request) (granted bool, always bool, err error) {
	if req.IsBroad {
		fmt.Fprintf(p.out, "\n")
		fmt.Fprintf(p.out, "\033[1;33mSecurity Warning: Broad Permission Requested\033[0m\n\n")
		fmt.Fprintf(p.out, "  %s\n", req.Description)
		fmt.Fprintf(p.out, "  Recommendation: Review if this broad access is necessary.\n")
		fmt.Fprintf(p.out, "\n")
	}

	const (
		OptionYes    = "Yes, grant for this session"
		OptionAlways = "Always grant (save to config)"
		OptionNo     = "No, deny"
	)

	desc := req.Description
	if req.Justification != "" {
		desc = fmt.Sprintf("%s\nReason given: %s", desc, req.Justification)
	}

	var selection string

	err = huh.NewSelect[string]().
		Title("Add-on Requesting Permission").
		Description(desc).
		Options(
			huh.NewOption(OptionYes, OptionYes),
			huh.NewOption(OptionAlways, OptionAlways),
			huh.NewOption(OptionNo, OptionNo),
		).
		Value(&selection).
		Run()
	if err != nil {
		return false, false, err
	}

	switch selection {
	case OptionYes:
		return true, false, nil
	case OptionAlways:
		return true, true, nil
	default:
		return false, false, nil
	}
}

// FormatNonInteractiveError creates a helpful error message for non-interactive mode.
func (p *TerminalPrompter) FormatNonInteractiveError(addonID string, missing capability.PermissionSet) error {
	return NonInteractiveError(addonID, missing)
}

// NonInteractiveError lists the missing permissions and how to grant them.
func NonInteractiveError(addonID string, missing capability.PermissionSet) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "add-on %s requires additional permissions (running in non-interactive mode)\n\n", addonID)
	msg.WriteString("Required permissions:\n")
	for _, perm := range missing.Sorted() {
		fmt.Fprintf(&msg, "  - %s\n", perm)
	}

	msg.WriteString("\nTo grant these permissions:\n")
	msg.WriteString("  1. Run interactively and approve when prompted\n")
	msg.WriteString("  2. Set ADDON_TRUST_ALL=true (grants all permissions)\n")
	msg.WriteString("  3. Manually edit: ~/.addon-host/grants.yaml\n")

	return fmt.Errorf("%w: %s", ErrNonInteractive, msg.String())
}
