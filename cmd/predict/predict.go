package predict

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/voiceid/internal/analysis"
	"github.com/tphakala/voiceid/internal/conf"
)

// Command creates the predict command for classifying a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [input.wav]",
		Short: "Classify a local audio file",
		Long:  "Run the prediction pipeline on one WAV, MP3, FLAC or OGG file and print the result as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.FileAnalysis(cmd.Context(), settings, args[0], cmd.OutOrStdout())
		},
	}
}
