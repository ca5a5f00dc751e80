// Package cli implements the addonctl command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/reglet-addon-host/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Logger      *slog.Logger
	Format      string // "json" | "text"
	GrantsPath  string
	EnabledPath string
	Verbose     bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for addonctl. logger may be nil.
func NewRootCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	if logger == nil {
		logger = slog.Default()
	}
	opts := &RootOptions{
		Logger:      logger,
		GrantsPath:  cfg.GrantsPath,
		EnabledPath: cfg.EnabledPath,
	}

	cmd := &cobra.Command{
		Use:   "addonctl",
		Short: "Inspect add-on manifests",
		Long:  "Validate add-on manifests, report the risk of the permissions they request and inspect the host's stored grants and enabled add-ons.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Verbose {
				opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRiskCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewGrantsCommand(opts))
	cmd.AddCommand(NewEnabledCommand(opts))

	return cmd
}
