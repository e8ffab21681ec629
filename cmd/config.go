package cmd

import (
	"fmt"
	"os"
	"sort"

	"engine-bridge/core/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved effective configuration",
	Long: `Resolves the configuration exactly like start does (flags, the
environment-designated file, OS settings, packaged defaults) and prints
the effective result, so operators can see which values won.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Resolve(config.Overrides{
			Host:            startFlags.host,
			Port:            startFlags.port,
			InstallRoot:     startFlags.installRoot,
			Version:         startFlags.version,
			InstallPath:     startFlags.installPath,
			LicenseLocation: startFlags.licenseLocation,
			LicensePackage:  startFlags.licensePackage,
			StartupTimeout:  startFlags.timeoutSeconds,
		})

		scopes := make([]string, 0, len(cfg.Tolerances))
		for name := range cfg.Tolerances {
			scopes = append(scopes, name)
		}
		sort.Strings(scopes)

		summary := map[string]any{
			"host":                 cfg.Host,
			"port":                 cfg.Port,
			"installPath":          cfg.InstallPath,
			"licenseLocation":      cfg.LicenseLocation,
			"licensePackage":       cfg.LicensePackage,
			"startupTimeout":       int(cfg.StartupTimeout.Seconds()),
			"reportTemplateFolder": cfg.ReportTemplateFolder,
			"preferences":          cfg.Preferences,
			"toleranceScopes":      scopes,
		}
		if len(cfg.Extra) > 0 {
			summary["extra"] = cfg.Extra
		}
		if file := os.Getenv(config.EnvConfigFile); file != "" {
			summary["configFile"] = file
		} else if path, err := config.DefaultFilePath(); err == nil {
			summary["configFile"] = path
		}

		out, err := yaml.Marshal(summary)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	registerOverrideFlags(configCmd.Flags())
	RootCmd.AddCommand(configCmd)
}
