package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/voiceid/internal/analysis"
	"github.com/tphakala/voiceid/internal/conf"
)

// Command creates the serve command which runs the prediction API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the prediction HTTP API",
		Long:  "Load the model bundle and serve GET /, GET /health and POST /predict.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.Serve(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "Address to bind the HTTP server to")
	flags.String("port", "8000", "Port to listen on")
	flags.String("ingest", conf.IngestMemory, "Upload ingestion mode: memory or tempfile")
	flags.Int("max-concurrent", 0, "Maximum concurrent predictions, 0 for unlimited")
	flags.Bool("telemetry", false, "Enable the Prometheus metrics endpoint")
	flags.String("telemetry-listen", "0.0.0.0:8090", "Listen address of the metrics endpoint")

	bindings := map[string]string{
		"webserver.host":          "host",
		"webserver.port":          "port",
		"webserver.ingest":        "ingest",
		"webserver.maxconcurrent": "max-concurrent",
		"telemetry.enabled":       "telemetry",
		"telemetry.listen":        "telemetry-listen",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
