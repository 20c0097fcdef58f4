package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/voiceid/cmd/bundle"
	"github.com/tphakala/voiceid/cmd/predict"
	"github.com/tphakala/voiceid/cmd/serve"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/logger"
)

// BuildInfo carries values injected at link time.
type BuildInfo struct {
	Version   string
	BuildDate string
}

// RootCommand creates and returns the root command. settings is filled in
// by the persistent pre-run hook, after flags, environment and config file
// have been merged.
func RootCommand(settings *conf.Settings, build BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voiceid",
		Short:         "Speech gender and region classification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd); err != nil {
		// Flag definitions are static, a failure here is a programming error.
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		predict.Command(settings),
		bundle.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, build)
	}

	return rootCmd
}

// initialize loads settings and installs the global logger.
func initialize(settings *conf.Settings, build BuildInfo) error {
	loaded, err := conf.Load()
	if err != nil {
		return err
	}
	loaded.Version = build.Version
	loaded.BuildDate = build.BuildDate
	*settings = *loaded

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
// and binds them to their configuration keys.
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("bundle", conf.DefaultBundlePath, "Path to the model bundle (YAML or JSON)")
	flags.String("ffmpeg", "", "Path to the ffmpeg binary, empty to search PATH")

	bindings := map[string]string{
		"debug":            "debug",
		"model.bundlepath": "bundle",
		"audio.ffmpegpath": "ffmpeg",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
