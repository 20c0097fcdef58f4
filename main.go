package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/voiceid/cmd"
	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, cmd.BuildInfo{Version: version, BuildDate: buildDate})

	err := rootCmd.ExecuteContext(context.Background())
	_ = logger.Global().Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
