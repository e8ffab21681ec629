//go:build !windows

package config

import "os"

// systemSource returns the OS-level settings source. Linux deployments are
// containers without a settings store; the conventional install-path
// variable is the only OS-level input.
func systemSource() SystemSource {
	return envSystemSource{}
}

type envSystemSource struct{}

func (envSystemSource) Name() string { return "environment" }

func (envSystemSource) Values() map[string]any {
	vals := map[string]any{}
	if p := os.Getenv("ENGINE_INSTALL_PATH"); p != "" {
		vals["installPath"] = p
	}
	return vals
}
