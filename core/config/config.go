package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"engine-bridge/core/tolerance"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Effective is the single merged configuration snapshot used for one
// session. It is computed once and never mutated; re-resolving requires a
// new call to Resolve.
type Effective struct {
	// Host is the engine host, scheme included (e.g. http://localhost).
	Host string
	// Port is the engine REST port (1-65535).
	Port int
	// InstallPath is the engine installation directory, empty when the
	// bridge may not launch a local process.
	InstallPath string
	// LicenseLocation is a license-server address or license file path.
	LicenseLocation string
	// LicensePackage selects the license package to check out.
	LicensePackage string
	// StartupTimeout bounds how long establishment waits for readiness.
	StartupTimeout time.Duration
	// Preferences are forwarded to the engine after establishment.
	Preferences map[string]any
	// Tolerances holds the per-scope tolerance rule sets.
	Tolerances map[string]tolerance.RuleSet
	// ReportTemplateFolder is the resolved report template directory.
	ReportTemplateFolder string
	// Extra carries passthrough keys the bridge does not interpret.
	Extra map[string]any
}

// Overrides are the caller-supplied settings. They rank above every other
// source. Zero values mean "not set".
type Overrides struct {
	Host            string
	Port            int
	InstallRoot     string
	Version         string
	InstallPath     string
	LicenseLocation string
	LicensePackage  string
	// StartupTimeout is in seconds, matching the config file key.
	StartupTimeout int
	// Settings are project-specific keys that override file values
	// wholesale, e.g. a parsed project config document.
	Settings map[string]any
}

type options struct {
	platform    string
	defaults    []byte
	defaultsDir string
	system      SystemSource
}

// Option adjusts resolution, mainly so tests can substitute the packaged
// default source and the OS settings source.
type Option func(*options)

// WithPlatform overrides the platform hint (default: runtime.GOOS).
func WithPlatform(platform string) Option {
	return func(o *options) { o.platform = platform }
}

// WithDefaultSource replaces the packaged default document and the directory
// relative paths resolve against when no environment file is designated.
func WithDefaultSource(doc []byte, dir string) Option {
	return func(o *options) { o.defaults = doc; o.defaultsDir = dir }
}

// WithDefaultDir sets only the fallback directory for relative paths,
// typically the directory of the deposited default file.
func WithDefaultDir(dir string) Option {
	return func(o *options) { o.defaultsDir = dir }
}

// WithSystemSource replaces the OS-level settings source.
func WithSystemSource(src SystemSource) Option {
	return func(o *options) { o.system = src }
}

// Resolve merges all configuration sources into one effective snapshot.
//
// It is total: every key falls back to the packaged defaults, so Resolve
// always returns a usable value and never fails. Misconfiguration surfaces
// later, closer to its observable effect, as a launch or startup error.
//
// Per key the sources are consulted in SourceRank order: explicit override,
// the configuration file, OS-level settings, packaged defaults. The file is
// the one designated by $ENGINE_CONFIG_FILE, or the deposited file at the
// platform-standard path when the variable is unset. Keys resolve
// independently, so one source defining a single key does not shadow the
// others.
func Resolve(ov Overrides, opts ...Option) Effective {
	o := options{platform: runtime.GOOS, defaults: defaultsYML, system: systemSource()}
	for _, opt := range opts {
		opt(&o)
	}

	// .env files rank as process environment, lowest of the env-derived
	// inputs; existing variables are not overridden.
	_ = godotenv.Load()

	defaults := parseYAMLMap(o.defaults)

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	if o.platform == "linux" {
		// container convention: the engine listens on 8080 unless the
		// file or the caller says otherwise
		v.SetDefault("port", 8080)
	}

	fallbackPort := v.GetInt("port")
	if fallbackPort < 1 || fallbackPort > 65535 {
		fallbackPort = 1337
	}

	var systemVals map[string]any
	if o.system != nil {
		systemVals = o.system.Values()
		for key, val := range systemVals {
			v.SetDefault(key, val)
		}
	}

	// The user's configuration file: the env-designated one, or the
	// deposited file at the platform-standard path. baseDir doubles as the
	// root for relative paths and must never be derived from a pointer that
	// does not resolve to an existing file.
	baseDir := o.defaultsDir
	var fileVals map[string]any
	configFile := os.Getenv(EnvConfigFile)
	if configFile == "" {
		if standard, err := DefaultFilePath(); err == nil {
			configFile = standard
		}
	}
	if configFile != "" {
		if data, err := os.ReadFile(configFile); err == nil {
			fileVals = parseYAMLMap(data)
			v.SetConfigFile(configFile)
			v.SetConfigType("yaml")
			_ = v.ReadInConfig()
			baseDir = filepath.Dir(configFile)
		}
	}

	for key, val := range ov.Settings {
		v.Set(key, val)
	}
	if loc := os.Getenv(EnvLicenseLocation); loc != "" && ov.LicenseLocation == "" {
		v.Set("licenseLocation", loc)
	}
	applyFieldOverrides(v, ov)

	eff := Effective{
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		InstallPath:     v.GetString("installPath"),
		LicenseLocation: v.GetString("licenseLocation"),
		LicensePackage:  v.GetString("licensePackage"),
		StartupTimeout:  time.Duration(v.GetInt("startupTimeout")) * time.Second,
	}
	if eff.Host == "" {
		eff.Host = "http://localhost"
	}
	if eff.Port < 1 || eff.Port > 65535 {
		eff.Port = fallbackPort
	}
	if eff.InstallPath == "" {
		root := v.GetString("installationRoot")
		version := v.GetString("engineVersion")
		if root != "" && version != "" {
			eff.InstallPath = filepath.Join(root, version)
		}
	}
	eff.InstallPath = relToAbs(eff.InstallPath, baseDir)

	// Preference and tolerance maps merge per subkey across sources, so a
	// project file can adjust one preference without discarding the rest.
	// Viper lowercases nested keys, so the maps come from the raw
	// documents instead.
	prefs := map[string]any{}
	mergeInto(prefs, subMap(defaults, "preferences"))
	mergeInto(prefs, subMap(systemVals, "preferences"))
	mergeInto(prefs, subMap(fileVals, "preferences"))
	mergeInto(prefs, subMap(ov.Settings, "preferences"))
	if folder, ok := prefs["REPORT_TEMPLATE_FOLDER"].(string); ok {
		eff.ReportTemplateFolder = relToAbs(folder, baseDir)
		prefs["REPORT_TEMPLATE_FOLDER"] = eff.ReportTemplateFolder
	}
	eff.Preferences = prefs

	tols := map[string]any{}
	mergeInto(tols, subMap(defaults, "tolerances"))
	mergeInto(tols, subMap(fileVals, "tolerances"))
	mergeInto(tols, subMap(ov.Settings, "tolerances"))
	eff.Tolerances = tolerance.ParseRuleSets(tols)

	eff.Extra = passthrough(defaults, fileVals, ov.Settings)

	return eff
}

// recognized are the top-level keys the bridge interprets itself.
var recognized = map[string]bool{
	"host": true, "port": true, "installPath": true, "installationRoot": true,
	"engineVersion": true, "licenseLocation": true, "licensePackage": true,
	"startupTimeout": true, "preferences": true, "tolerances": true,
}

func passthrough(layers ...map[string]any) map[string]any {
	extra := map[string]any{}
	for _, layer := range layers {
		for key, val := range layer {
			if !recognized[key] {
				extra[key] = val
			}
		}
	}
	return extra
}

func applyFieldOverrides(v *viper.Viper, ov Overrides) {
	if ov.Host != "" {
		v.Set("host", ov.Host)
	}
	if ov.Port != 0 {
		v.Set("port", ov.Port)
	}
	if ov.InstallRoot != "" {
		v.Set("installationRoot", ov.InstallRoot)
	}
	if ov.Version != "" {
		v.Set("engineVersion", ov.Version)
	}
	if ov.InstallPath != "" {
		v.Set("installPath", ov.InstallPath)
	}
	if ov.LicenseLocation != "" {
		v.Set("licenseLocation", ov.LicenseLocation)
	}
	if ov.LicensePackage != "" {
		v.Set("licensePackage", ov.LicensePackage)
	}
	if ov.StartupTimeout > 0 {
		v.Set("startupTimeout", ov.StartupTimeout)
	}
}

// relToAbs resolves a relative path against baseDir. Without a base the
// value is returned unchanged rather than resolved against a guessed
// directory.
func relToAbs(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func parseYAMLMap(doc []byte) map[string]any {
	vals := map[string]any{}
	_ = yaml.Unmarshal(doc, &vals)
	return vals
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	switch sub := m[key].(type) {
	case map[string]any:
		return sub
	default:
		return nil
	}
}

func mergeInto(dst, src map[string]any) {
	for key, val := range src {
		dst[key] = val
	}
}
