package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"engine-bridge/core/config"
	"engine-bridge/core/logger"
	"engine-bridge/core/portreg"
	"engine-bridge/core/session"
	"engine-bridge/feature/client"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var startFlags struct {
	host            string
	port            int
	installRoot     string
	version         string
	installPath     string
	licenseLocation string
	licensePackage  string
	timeoutSeconds  int
	logLevel        string
	logFormat       string
}

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Establish an engine session and keep it alive",
	Long: `Connects to the configured engine instance, launching one locally if
needed, applies the resolved preferences and holds the session open
until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		logg, err := logger.New(&logger.Config{
			Level:  startFlags.logLevel,
			Format: startFlags.logFormat,
		})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// Make sure a per-user config file exists so operators have one
		// obvious place to put their settings.
		depositPath, err := config.EnsureDefaultFile(logg)
		if err != nil {
			logg.Warn("could not deposit default config file", zap.Error(err))
		}

		var resolveOpts []config.Option
		if depositPath != "" {
			resolveOpts = append(resolveOpts, config.WithDefaultDir(filepath.Dir(depositPath)))
		}
		cfg := config.Resolve(config.Overrides{
			Host:            startFlags.host,
			Port:            startFlags.port,
			InstallRoot:     startFlags.installRoot,
			Version:         startFlags.version,
			InstallPath:     startFlags.installPath,
			LicenseLocation: startFlags.licenseLocation,
			LicensePackage:  startFlags.licensePackage,
			StartupTimeout:  startFlags.timeoutSeconds,
		}, resolveOpts...)

		managerOpts := []session.ManagerOption{}
		if reg, err := portreg.Open(""); err != nil {
			logg.Warn("port registry unavailable, concurrent launches are unguarded", zap.Error(err))
		} else {
			managerOpts = append(managerOpts, session.WithRegistry(reg))
		}
		mgr := session.NewManager(cfg, logg, managerOpts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := mgr.Establish(ctx)
		if err != nil {
			logg.Fatal("could not establish engine session", zap.Error(err))
		}
		logg.Info("session established",
			zap.String("session_id", sess.ID),
			zap.String("base_url", sess.BaseURL),
			zap.Bool("owns_process", sess.OwnsProcess))

		api := client.New(sess, logg)
		if err := api.ApplyPreferences(ctx, cfg.Preferences); err != nil {
			logg.Warn("some preferences were not applied", zap.Error(err))
		}

		<-ctx.Done()
		logg.Info("Shutting down session...")

		// A fresh context: the signal context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := mgr.Release(shutdownCtx, sess); err != nil {
			logg.Error("session shutdown failed", zap.Error(err))
		}
	},
}

// registerOverrideFlags binds the configuration override flags shared by
// start and config.
func registerOverrideFlags(fs *pflag.FlagSet) {
	fs.StringVar(&startFlags.host, "host", "", "engine host (default from config)")
	fs.IntVar(&startFlags.port, "port", 0, "engine REST port (default from config)")
	fs.StringVar(&startFlags.installRoot, "install-root", "", "directory that holds engine installations")
	fs.StringVar(&startFlags.version, "version", "", "engine version to launch from the install root")
	fs.StringVar(&startFlags.installPath, "install-path", "", "full path of one engine installation (overrides install-root/version)")
	fs.StringVar(&startFlags.licenseLocation, "license-location", "", "license server address or license file path")
	fs.StringVar(&startFlags.licensePackage, "license-package", "", "license package to check out")
	fs.IntVar(&startFlags.timeoutSeconds, "timeout", 0, "startup timeout in seconds (default from config)")
}

func init() {
	registerOverrideFlags(startCmd.Flags())
	startCmd.Flags().StringVar(&startFlags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	startCmd.Flags().StringVar(&startFlags.logFormat, "log-format", "console", "log format (console, json)")
	RootCmd.AddCommand(startCmd)
}
