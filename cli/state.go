package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/reglet-addon-host/capability/grantstore"
	"github.com/reglet-dev/reglet-addon-host/plugin/filesystem"
)

// GrantEntry is one stored grant rule in JSON output.
type GrantEntry struct {
	Addon       string   `json:"addon"`
	Permissions []string `json:"permissions"`
}

// EnabledEntry is one enabled add-on in JSON output.
type EnabledEntry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Source  string `json:"source,omitempty"`
}

// NewGrantsCommand creates the grants command.
func NewGrantsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "grants",
		Short:         "List the stored permission grants",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrants(rootOpts, cmd.OutOrStdout())
		},
	}
}

func runGrants(opts *RootOptions, w io.Writer) error {
	store := grantstore.NewFileStore(grantstore.WithPath(opts.GrantsPath))
	grants, err := store.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading grants", err)
	}
	opts.Logger.Debug("grants loaded", "path", store.ConfigPath(), "rules", len(grants.Rules))

	entries := make([]GrantEntry, 0, len(grants.Rules))
	for _, r := range grants.Rules {
		perms := make([]string, len(r.Permissions))
		for i, p := range r.Permissions {
			perms[i] = string(p)
		}
		entries = append(entries, GrantEntry{Addon: r.Addon, Permissions: perms})
	}

	if opts.Format == "json" {
		return writeJSON(w, "ok", entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no stored grants")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s: %s\n", e.Addon, strings.Join(e.Permissions, ", "))
	}
	return nil
}

// NewEnabledCommand creates the enabled command.
func NewEnabledCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "enabled",
		Short:         "List the add-ons the host restores at startup",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnabled(rootOpts, cmd)
		},
	}
}

func runEnabled(opts *RootOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	set, err := filesystem.NewFileEnabledSetRepository().Load(cmd.Context(), opts.EnabledPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading enabled add-ons", err)
	}

	entries := []EnabledEntry{}
	if set != nil {
		for _, a := range set.Addons {
			entries = append(entries, EnabledEntry{ID: a.ID, Version: a.Version, Source: a.Source})
		}
	}

	if opts.Format == "json" {
		return writeJSON(w, "ok", entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no enabled add-ons")
		return nil
	}
	for _, e := range entries {
		if e.Source == "" {
			fmt.Fprintf(w, "%s %s\n", e.ID, e.Version)
			continue
		}
		fmt.Fprintf(w, "%s %s (%s)\n", e.ID, e.Version, e.Source)
	}
	return nil
}
