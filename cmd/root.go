package cmd

import (
	"fmt"
	"os"

	"engine-bridge/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "engine-bridge",
	Short: "Headless bridge for the engine's REST API",
	Long: `engine-bridge connects to a running engine instance or launches one,
waits until its REST API is ready and keeps the session alive for
automation scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format at debug level so CLI users get readable,
		// ISO8601-stamped output instead of production JSON.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
