package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultFilePath returns the platform-standard location for the deposited
// configuration file.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "engine-bridge", "config.yml"), nil
}

// EnsureDefaultFile deposits a starter configuration file unless one is
// already present, and returns its path.
//
// The target is the file designated by $ENGINE_CONFIG_FILE, or the
// platform-standard location when the variable is unset. An existing file is
// never touched, so user edits survive; calling this any number of times has
// the same effect as calling it once.
//
// Resolution itself is pure — this deposit is a separate, explicit step the
// CLI runs before Resolve.
func EnsureDefaultFile(log *zap.Logger, opts ...Option) (string, error) {
	o := options{defaults: defaultsYML, system: systemSource()}
	for _, opt := range opts {
		opt(&o)
	}

	target := os.Getenv(EnvConfigFile)
	if target == "" {
		var err error
		if target, err = DefaultFilePath(); err != nil {
			return "", err
		}
	}
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	// Seed the template with whatever the OS-level settings already know,
	// so a fresh deposit points at the locally installed engine.
	doc := parseYAMLMap(o.defaults)
	if o.system != nil {
		mergeInto(doc, o.system.Values())
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write default config: %w", err)
	}
	log.Info("deposited default configuration", zap.String("path", target))
	return target, nil
}
