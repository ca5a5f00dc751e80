package cli

import (
	"github.com/spf13/cobra"

	"github.com/reglet-dev/reglet-addon-host/validation"
)

// NewSchemaCommand creates the schema command. It prints the manifest JSON
// Schema regardless of --format.
func NewSchemaCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "schema",
		Short:         "Print the add-on manifest JSON Schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(validation.ManifestSchema())
			return err
		},
	}
}
