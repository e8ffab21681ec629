package session

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"engine-bridge/core/config"
	"engine-bridge/core/portreg"
	"engine-bridge/core/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State of the lifecycle machine. It is retained after failure so error
// messages can say which step went wrong.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateLaunching
	StatePolling
	StateEstablished
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateLaunching:
		return "launching"
	case StatePolling:
		return "polling"
	case StateEstablished:
		return "established"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the caller-facing token of an established, ready connection.
// OwnsProcess is true only when this manager launched the engine; a session
// that attached to a pre-existing instance never terminates it.
type Session struct {
	ID          string
	Host        string
	Port        int
	BaseURL     string
	OwnsProcess bool
	PID         int
	Established time.Time

	proc Process
}

// establishGroup serializes establishment per host:port across all managers
// in this process, so concurrent callers cannot race to launch duplicates.
var establishGroup singleflight.Group

// Manager orchestrates discovery, optional launch and readiness polling of
// the engine process.
type Manager struct {
	cfg      config.Effective
	log      *zap.Logger
	launcher Launcher
	prober   Prober
	registry *portreg.Registry
	interval time.Duration
	grace    time.Duration

	mu    sync.Mutex
	state State
}

// ManagerOption adjusts a Manager, mainly for tests.
type ManagerOption func(*Manager)

// WithLauncher replaces the platform launcher.
func WithLauncher(l Launcher) ManagerOption {
	return func(m *Manager) { m.launcher = l }
}

// WithProber replaces the readiness prober.
func WithProber(p Prober) ManagerOption {
	return func(m *Manager) { m.prober = p }
}

// WithRegistry attaches a cross-process port registry consulted before
// launching.
func WithRegistry(r *portreg.Registry) ManagerOption {
	return func(m *Manager) { m.registry = r }
}

// WithPollInterval sets the readiness polling interval (default 2s).
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// WithGracePeriod sets how long Release waits for a graceful stop before
// killing an owned process (default 10s).
func WithGracePeriod(d time.Duration) ManagerOption {
	return func(m *Manager) { m.grace = d }
}

// NewManager creates a lifecycle manager for one resolved configuration.
func NewManager(cfg config.Effective, log *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:      cfg,
		log:      log,
		launcher: NewLauncher(runtime.GOOS),
		interval: 2 * time.Second,
		grace:    10 * time.Second,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.prober == nil {
		m.prober = newHTTPProber(BaseURL(cfg.Host, cfg.Port))
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Establish discovers or launches the engine and waits until it is ready.
//
// A running, ready engine is adopted without launching. Otherwise, when the
// configuration names an install path and the target is local, the engine is
// started and polled until ready, the startup budget runs out, or ctx is
// cancelled. Failures carry a response.Kind: LaunchFailed when process
// creation itself errored (no polling is attempted), StartupFailed when the
// engine never became ready (including the last observed probe outcome),
// Unreachable when nothing ever answered and nothing could be launched, and
// Cancelled on caller abort. A cancelled establishment kills the process it
// launched.
//
// Concurrent calls targeting the same host and port coalesce into a single
// attempt that runs on the first caller's ctx; every caller receives that
// attempt's session or error, including a Cancelled one.
func (m *Manager) Establish(ctx context.Context) (*Session, error) {
	key := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	v, err, _ := establishGroup.Do(key, func() (any, error) {
		return m.establish(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) establish(ctx context.Context, key string) (*Session, error) {
	m.setState(StateProbing)
	switch m.prober.Probe(ctx) {
	case OutcomeReady:
		m.setState(StateEstablished)
		m.log.Info("connected to running engine", zap.String("target", key))
		return m.newSession(nil), nil
	case OutcomeFatal:
		m.setState(StateFailed)
		return nil, response.NewError(response.KindStartupFailed,
			"engine at %s answered the initial probe with a fatal status", key)
	}

	var proc Process
	if m.canLaunch() {
		m.setState(StateLaunching)
		if m.registry != nil {
			if err := m.registry.Reserve(m.cfg.Port, os.Getpid(), portreg.ProcessAlive); err != nil {
				m.setState(StateFailed)
				return nil, response.NewError(response.KindLaunchFailed,
					"not launching on %s: %v", key, err)
			}
		}
		p, err := m.launcher.Launch(ctx, m.cfg)
		if err != nil {
			m.setState(StateFailed)
			m.releasePort()
			if response.KindOf(err) == response.KindLaunchFailed {
				return nil, err
			}
			return nil, response.NewError(response.KindLaunchFailed,
				"starting engine process: %v", err)
		}
		proc = p
		m.log.Info("launched engine process",
			zap.Int("pid", p.PID()),
			zap.String("install_path", m.cfg.InstallPath),
			zap.String("target", key))
	} else {
		m.log.Info("no local install path configured, waiting for engine",
			zap.String("target", key))
	}

	sess, err := m.poll(ctx, proc, key)
	if err != nil {
		m.setState(StateFailed)
		if proc != nil {
			// a cancelled establishment must not leave a half-started
			// engine behind; other failures keep the process around for
			// log inspection
			if response.KindOf(err) == response.KindCancelled && proc.Alive() {
				m.log.Info("killing partially started engine", zap.Int("pid", proc.PID()))
				_ = proc.Kill()
			}
			if !proc.Alive() {
				m.releasePort()
			}
		}
		return nil, err
	}
	m.setState(StateEstablished)
	m.log.Info("engine ready", zap.String("target", key), zap.Bool("owns_process", sess.OwnsProcess))
	return sess, nil
}

func (m *Manager) poll(ctx context.Context, proc Process, key string) (*Session, error) {
	m.setState(StatePolling)

	timeout := m.cfg.StartupTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	deadline := time.Now().Add(timeout)
	last := OutcomeUnreachable
	sawReachable := false

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, response.NewError(response.KindCancelled,
				"establishment cancelled while polling %s (last probe: %s)", key, last)
		case <-ticker.C:
		}

		if proc != nil && !proc.Alive() {
			return nil, response.NewError(response.KindStartupFailed,
				"engine process exited before becoming ready (last probe: %s); check the engine log for license or configuration errors", last)
		}

		last = m.prober.Probe(ctx)
		switch last {
		case OutcomeReady:
			return m.newSession(proc), nil
		case OutcomeFatal:
			return nil, response.NewError(response.KindStartupFailed,
				"engine at %s reported a fatal status while starting up", key)
		case OutcomeNotReady:
			sawReachable = true
		}

		if time.Now().After(deadline) {
			if !sawReachable {
				return nil, response.NewError(response.KindUnreachable,
					"engine at %s not reachable within %s; is it installed and allowed to start?", key, timeout)
			}
			return nil, response.NewError(response.KindStartupFailed,
				"engine at %s did not become ready within %s (last probe: %s)", key, timeout, last)
		}
	}
}

// Release shuts the session down. For a session that owns its process the
// engine is asked to quit gracefully and killed only after the grace period;
// a session attached to a pre-existing engine is released without touching
// the process.
func (m *Manager) Release(ctx context.Context, s *Session) error {
	if s == nil || !s.OwnsProcess {
		return nil
	}
	log := m.log.With(zap.String("session_id", s.ID), zap.Int("pid", s.PID))
	log.Info("stopping engine")

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.BaseURL+"/application?force-quit=true", nil)
	if err == nil {
		if resp, doErr := http.DefaultClient.Do(req); doErr == nil {
			resp.Body.Close()
		}
	}

	graceEnd := time.Now().Add(m.grace)
	for s.proc != nil && s.proc.Alive() {
		if time.Now().After(graceEnd) {
			log.Warn("engine ignored graceful stop, killing process")
			if err := s.proc.Kill(); err != nil {
				return fmt.Errorf("kill engine process %d: %w", s.PID, err)
			}
			break
		}
		select {
		case <-ctx.Done():
			return response.NewError(response.KindCancelled, "release cancelled while waiting for engine shutdown")
		case <-time.After(m.interval):
		}
	}

	m.releasePort()
	log.Info("engine stopped")
	return nil
}

func (m *Manager) newSession(proc Process) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		Host:        m.cfg.Host,
		Port:        m.cfg.Port,
		BaseURL:     BaseURL(m.cfg.Host, m.cfg.Port),
		Established: time.Now(),
	}
	if proc != nil {
		s.OwnsProcess = true
		s.PID = proc.PID()
		s.proc = proc
	}
	return s
}

func (m *Manager) canLaunch() bool {
	return m.cfg.InstallPath != "" && isLocal(m.cfg.Host)
}

func (m *Manager) releasePort() {
	if m.registry != nil {
		_ = m.registry.Release(m.cfg.Port)
	}
}

func isLocal(host string) bool {
	h := strings.TrimPrefix(host, "http://")
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimSuffix(h, "/")
	switch h {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	default:
		return false
	}
}
