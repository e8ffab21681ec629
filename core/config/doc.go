// Package config resolves the layered configuration of the bridge into one
// immutable effective snapshot.
//
// Four sources are consulted per key, in fixed priority order: explicit
// caller overrides, the user's configuration file, OS-level settings (the
// Windows registry, or conventional environment variables in containers),
// and the packaged defaults embedded in the binary. The configuration file
// is the one designated by $ENGINE_CONFIG_FILE, or the deposited file at the
// platform-standard path when the variable is unset. Resolution is total —
// it always returns a usable snapshot and never fails — so configuration
// problems surface later as launch or startup errors, closer to their
// observable effect.
//
// Relative paths inside the configuration file resolve against that file's
// directory; without a readable file the packaged-default directory is used
// instead.
//
// The recognized top-level keys are host, port, installationRoot,
// engineVersion, installPath, licenseLocation, licensePackage,
// startupTimeout, preferences and tolerances. Unknown keys pass through in
// Effective.Extra for consumers the bridge does not know about.
//
// # Usage
//
//	path, _ := config.EnsureDefaultFile(log)
//	cfg := config.Resolve(config.Overrides{Port: 1337},
//	    config.WithDefaultDir(filepath.Dir(path)))
package config
