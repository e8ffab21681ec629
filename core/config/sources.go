package config

import (
	_ "embed"
)

// Environment variables consumed by the resolver.
const (
	// EnvConfigFile designates the path of the user's configuration file.
	EnvConfigFile = "ENGINE_CONFIG_FILE"
	// EnvLicenseLocation overrides the configured license location.
	EnvLicenseLocation = "ENGINE_LICENSE_LOCATION"
)

//go:embed defaults.yml
var defaultsYML []byte

// SystemSource exposes OS-level settings, e.g. the registry entries the
// engine installer writes on Windows. It ranks between the user's
// configuration file and the packaged defaults.
type SystemSource interface {
	// Name identifies the source in logs and diagnostics.
	Name() string
	// Values returns the configuration keys this source defines.
	Values() map[string]any
}

// SourceRank documents the fixed resolution order, highest priority first.
// Each key is taken from the first source that defines it.
var SourceRank = []string{"override", "environment-file", "system", "packaged-default"}
