package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/reglet-addon-host/validation"
)

// Problem is one manifest problem in JSON output.
type Problem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Addon    string    `json:"addon,omitempty"`
	Version  string    `json:"version,omitempty"`
	Problems []Problem `json:"problems,omitempty"`
	Valid    bool      `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Check an add-on manifest",
		Long: `Check an add-on manifest (YAML or JSON) against the manifest schema and
the manifest rules. Every problem is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd.OutOrStdout())
		},
	}
}

func runValidate(opts *RootOptions, path string, w io.Writer) error {
	m, problems, err := loadManifest(path)
	if err != nil {
		return err
	}
	opts.Logger.Debug("manifest checked", "path", path, "problems", len(problems))

	result := ValidationResult{Valid: len(problems) == 0}
	if m != nil {
		result.Addon = m.ID
		result.Version = m.Version
	}
	for _, p := range problems {
		result.Problems = append(result.Problems, Problem{Field: p.Field, Message: p.Message})
	}

	if opts.Format == "json" {
		status := "ok"
		if !result.Valid {
			status = "error"
		}
		if err := writeJSON(w, status, result); err != nil {
			return err
		}
	} else {
		writeValidateText(w, path, result, problems)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
	}
	return nil
}

func writeValidateText(w io.Writer, path string, result ValidationResult, problems []validation.ValidationError) {
	if result.Valid {
		fmt.Fprintf(w, "✓ %s %s is valid\n", result.Addon, result.Version)
		return
	}
	name := result.Addon
	if name == "" {
		name = path
	}
	fmt.Fprintf(w, "✗ %s: %d problem(s)\n", name, len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  %s\n", p.Error())
	}
}
