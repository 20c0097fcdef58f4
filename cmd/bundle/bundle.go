package bundle

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/voiceid/internal/analysis"
	"github.com/tphakala/voiceid/internal/conf"
)

// Command creates the bundle parent command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Model bundle utilities",
	}

	cmd.AddCommand(inspectCommand(settings))

	return cmd
}

func inspectCommand(settings *conf.Settings) *cobra.Command {
	var asJSON, strict bool

	cmd := &cobra.Command{
		Use:   "inspect [bundle.yaml]",
		Short: "Show which bundle slots load",
		Long:  "Load the model bundle and report each slot, the key it was found under, its kind and load status.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settings.Model.BundlePath
			if len(args) == 1 {
				path = args[0]
			}
			return analysis.InspectBundle(path, cmd.OutOrStdout(), asJSON, strict)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error unless every slot loaded")

	return cmd
}
