package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/validation"
)

// RiskFactor is one risk element in JSON output.
type RiskFactor struct {
	Level       string `json:"level"`
	Description string `json:"description"`
	Rule        string `json:"rule"`
}

// RiskResult is the risk report of one manifest.
type RiskResult struct {
	Addon   string       `json:"addon"`
	Level   string       `json:"level"`
	Factors []RiskFactor `json:"factors,omitempty"`
}

// NewRiskCommand creates the risk command.
func NewRiskCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "risk <manifest>",
		Short:         "Report the risk of the permissions a manifest requests",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRisk(rootOpts, args[0], cmd.OutOrStdout())
		},
	}
}

func runRisk(opts *RootOptions, path string, w io.Writer) error {
	m, problems, err := loadManifest(path)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return WrapExitError(ExitFailure, path, validation.Err(problems))
	}

	req, err := capability.Extract(m.ID, m.Permissions)
	if err != nil {
		return WrapExitError(ExitFailure, path, err)
	}
	report := capability.AnalyzeRisk(req.Requested)
	opts.Logger.Debug("risk analyzed", "addon", m.ID, "level", report.Level)

	result := RiskResult{Addon: m.ID, Level: report.Level.String()}
	for _, f := range report.RiskFactors {
		result.Factors = append(result.Factors, RiskFactor{
			Level:       f.Level.String(),
			Description: f.Description,
			Rule:        f.Rule,
		})
	}

	if opts.Format == "json" {
		return writeJSON(w, "ok", result)
	}
	fmt.Fprintf(w, "%s: risk %s\n", result.Addon, result.Level)
	for _, f := range result.Factors {
		fmt.Fprintf(w, "  %-8s %s (%s)\n", f.Level, f.Description, f.Rule)
	}
	return nil
}
