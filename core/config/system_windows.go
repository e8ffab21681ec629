//go:build windows

package config

import (
	"golang.org/x/sys/windows/registry"
)

// systemSource returns the OS-level settings source. The engine installer
// records its install root and version under HKLM.
func systemSource() SystemSource {
	return registrySource{}
}

type registrySource struct{}

func (registrySource) Name() string { return "registry" }

func (registrySource) Values() map[string]any {
	vals := map[string]any{}
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Engine`, registry.READ|registry.WOW64_64KEY)
	if err != nil {
		return vals
	}
	defer key.Close()

	if root, _, err := key.GetStringValue("InstallRoot"); err == nil && root != "" {
		vals["installationRoot"] = root
	}
	if version, _, err := key.GetStringValue("Version"); err == nil && version != "" {
		vals["engineVersion"] = version
	}
	if loc, _, err := key.GetStringValue("LicenseLocation"); err == nil && loc != "" {
		vals["licenseLocation"] = loc
	}
	return vals
}
