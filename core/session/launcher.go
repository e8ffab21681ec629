package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"engine-bridge/core/config"
	"engine-bridge/core/response"
)

// Process is the handle to a launched engine instance.
type Process interface {
	PID() int
	Alive() bool
	Kill() error
}

// Launcher starts the engine executable. The two implementations cover the
// Windows workstation install and the containerized Linux deployment; the
// lifecycle state machine itself is platform-agnostic.
type Launcher interface {
	Launch(ctx context.Context, cfg config.Effective) (Process, error)
}

// NewLauncher picks the launcher for a platform (runtime.GOOS values).
func NewLauncher(platform string) Launcher {
	if platform == "windows" {
		return &windowsLauncher{}
	}
	return &linuxLauncher{}
}

// execProcess wraps a started command. A watcher goroutine flips the exited
// flag so Alive never blocks.
type execProcess struct {
	cmd    *exec.Cmd
	exited atomic.Bool
}

func startProcess(cmd *exec.Cmd) (*execProcess, error) {
	// the engine's own output goes to its log files; ours stays clean
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd}
	go func() {
		_ = cmd.Wait()
		p.exited.Store(true)
	}()
	return p, nil
}

func (p *execProcess) PID() int    { return p.cmd.Process.Pid }
func (p *execProcess) Alive() bool { return !p.exited.Load() }
func (p *execProcess) Kill() error { return p.cmd.Process.Kill() }

type windowsLauncher struct{}

func (l *windowsLauncher) Launch(_ context.Context, cfg config.Effective) (Process, error) {
	exe := cfg.InstallPath
	if !strings.HasSuffix(exe, ".exe") {
		exe = filepath.Join(exe, "rcp", "engine.exe")
	}
	if _, err := os.Stat(exe); err != nil {
		return nil, response.NewError(response.KindLaunchFailed,
			"engine executable not found at %s; check installationRoot and engineVersion", exe)
	}

	args := []string{
		"-clearPersistedState",
		"-nosplash",
		"-application", "engine.application.headless",
		"-vmargs",
		"-Dengine.runtime.batch=engine",
		fmt.Sprintf("-Dengine.rest.port=%d", cfg.Port),
	}
	if cfg.LicensePackage != "" {
		args = append(args, "-Dengine.licensing.package="+cfg.LicensePackage)
	}
	if cfg.LicenseLocation != "" {
		args = append(args, "-Dengine.licensing.location="+cfg.LicenseLocation)
	}

	return startProcess(exec.Command(exe, args...))
}

type linuxLauncher struct{}

func (l *linuxLauncher) Launch(_ context.Context, cfg config.Effective) (Process, error) {
	exe := filepath.Join(cfg.InstallPath, "engine")
	if _, err := os.Stat(exe); err != nil {
		return nil, response.NewError(response.KindLaunchFailed,
			"engine executable not found at %s; check the container's install path", exe)
	}

	args := []string{
		"-clearPersistedState",
		"-nosplash", "-console", "-consoleLog",
		"-application", "engine.application.headless",
		"-vmargs",
		"-Dengine.runtime.batch=engine",
		fmt.Sprintf("-Dengine.rest.port=%d", cfg.Port),
	}

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ENGINE_REST_PORT=%d", cfg.Port),
		"ENGINE_LICENSE_LOCATION="+cfg.LicenseLocation,
		"ENGINE_LICENSE_PACKAGES="+cfg.LicensePackage,
	)
	return startProcess(cmd)
}
