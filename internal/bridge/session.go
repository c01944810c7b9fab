package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/gdpilot/cli/internal/project"
)

// State names the lifecycle phase of the interactive session.
type State string

const (
	StateIdle        State = "idle"
	StatePreparing   State = "preparing"
	StateRunning     State = "running"
	StateTearingDown State = "tearing_down"
)

// DefaultLaunchGrace is how long Start waits after spawning the editor so
// the injected listener has time to open its socket before the first
// command is attempted.
const DefaultLaunchGrace = 2 * time.Second

// Options configures a session Manager. Zero values select defaults.
type Options struct {
	Port           int
	CommandTimeout time.Duration
	LaunchGrace    time.Duration
	LogCapacity    int
	Logger         *log.Logger

	// LocateExecutable resolves the editor binary. Resolution failures
	// abort Start before any project mutation occurs.
	LocateExecutable func() (string, error)

	// OnEditorExit, when set, is notified after the manager has finished
	// tearing down a session whose editor exited on its own. The project
	// is already restored by the time it runs. Callers observe exits here;
	// the supervisor's exit hook belongs to the manager.
	OnEditorExit func(err error)
}

// Status is a point-in-time view of the session for callers.
type Status struct {
	State     State  `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Project   string `json:"project,omitempty"`
	Pid       int    `json:"pid,omitempty"`
	Connected bool   `json:"connected"`
	Uptime    string `json:"uptime,omitempty"`
}

// Manager owns the session state machine: reversible project preparation,
// editor launch via the Supervisor, command exchange via the Client, and an
// idempotent teardown reached from every termination path: explicit stop,
// editor exit, editor error.
type Manager struct {
	log    *log.Logger
	opts   Options
	client *Client
	sup    *Supervisor

	mu         sync.Mutex
	state      State
	snapshot   *project.Snapshot
	scriptPath string
	sessionID  string
	projectDir string
	startedAt  time.Time
	watcher    *fsnotify.Watcher
}

// NewManager wires a Manager with its correlator and supervisor.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.LaunchGrace == 0 {
		opts.LaunchGrace = DefaultLaunchGrace
	}

	m := &Manager{
		log:    opts.Logger,
		opts:   opts,
		client: NewClient(opts.Port, opts.CommandTimeout, opts.Logger),
		sup:    NewSupervisor(opts.LogCapacity, opts.Logger),
		state:  StateIdle,
	}
	m.sup.OnExit = func(err error) {
		if err != nil {
			m.log.Warn("editor exited unexpectedly, tearing session down", "error", err)
		} else {
			m.log.Info("editor exited, tearing session down")
		}
		m.teardown(fmt.Errorf("%w: session ended: editor exited", ErrNoSession), false)
		if opts.OnEditorExit != nil {
			opts.OnEditorExit(err)
		}
	}
	return m
}

// Supervisor exposes the process supervisor, e.g. for live output mirroring.
func (m *Manager) Supervisor() *Supervisor {
	return m.sup
}

// Start brings a session up: validate the project, inject the listener
// script and its autoload entry (snapshotting the descriptor first), launch
// the editor, and wait out the post-launch grace period. A session already
// running is torn down first; sessions never stack.
//
// Failure ordering matters: the executable is resolved before any mutation,
// and a failure after the descriptor was rewritten restores it before the
// error is reported.
func (m *Manager) Start(ctx context.Context, projectPath, scene string) error {
	m.mu.Lock()

	if m.state != StateIdle {
		m.log.Info("replacing active session")
		m.teardownLocked(fmt.Errorf("%w: session ended: replaced by new session", ErrNoSession), true)
	}
	m.state = StatePreparing

	executable, err := m.opts.LocateExecutable()
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}

	root, err := filepath.Abs(projectPath)
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrState, err)
	}
	if err := project.Validate(root); err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrState, err)
	}

	scriptPath := filepath.Join(root, ListenerFileName)
	if err := os.WriteFile(scriptPath, listenerSource(m.opts.Port), 0o644); err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: failed to install listener script: %v", ErrState, err)
	}

	snap, err := project.InjectAutoload(root, AutoloadName, autoloadValue)
	if err != nil {
		os.Remove(scriptPath)
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: failed to register listener autoload: %v", ErrState, err)
	}

	m.snapshot = snap
	m.scriptPath = scriptPath
	m.projectDir = root
	m.sessionID = uuid.NewString()[:8]

	args := []string{"--editor", "--path", root}
	if scene != "" {
		args = append(args, scene)
	}
	if err := m.sup.Launch(executable, args); err != nil {
		m.undoPreparationLocked()
		m.state = StateIdle
		m.mu.Unlock()
		return err
	}

	m.watchDescriptor(snap.Path)
	m.state = StateRunning
	m.startedAt = time.Now()
	m.log.Info("session started",
		"session", m.sessionID, "project", root, "pid", m.sup.Pid())
	m.mu.Unlock()

	// Grace period: give the listener time to open its socket. Commands
	// issued earlier would just see a retryable connection error, but
	// waiting here makes the common path work first try.
	select {
	case <-time.After(m.opts.LaunchGrace):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Stop ends the session explicitly. Stopping with nothing running reports
// an error rather than crashing; a second Stop after the first is that
// reportable no-op, never a panic.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.state != StateRunning && m.state != StatePreparing {
		m.mu.Unlock()
		return fmt.Errorf("%w: no session is running", ErrNoSession)
	}
	id := m.sessionID
	m.teardownLocked(fmt.Errorf("%w: session ended: stopped", ErrNoSession), true)
	m.mu.Unlock()

	m.log.Info("session stopped", "session", id)
	return nil
}

// Send forwards one command to the editor. Requires a running session so
// the failure message can point callers at start_session instead of a bare
// connection refusal.
func (m *Manager) Send(ctx context.Context, commandType string, params map[string]any) ([]byte, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state != StateRunning {
		return nil, fmt.Errorf("%w: start an interactive session with start_session first", ErrNoSession)
	}
	return m.client.Send(ctx, commandType, params)
}

// Output returns captured editor output. Callable in any state; before the
// first launch both streams are empty.
func (m *Manager) Output(opts OutputOptions) Output {
	return m.sup.Output(opts)
}

// Status reports the current session state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:     m.state,
		SessionID: m.sessionID,
		Project:   m.projectDir,
		Connected: m.client.Connected(),
	}
	if m.state == StateRunning {
		st.Pid = m.sup.Pid()
		st.Uptime = time.Since(m.startedAt).Round(time.Second).String()
	}
	return st
}

// teardown is the single cleanup path shared by explicit stop, editor exit,
// and editor error. Safe to invoke repeatedly: once the state machine is
// back at Idle further calls are no-ops, so racing triggers cannot corrupt
// anything.
func (m *Manager) teardown(cause error, stopProcess bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle || m.state == StateTearingDown {
		return
	}
	m.teardownLocked(cause, stopProcess)
}

// teardownLocked runs the teardown sequence. Caller holds mu. Errors on
// this path are logged but never prevent clearing in-memory state; the
// controller must always be able to reach Idle.
func (m *Manager) teardownLocked(cause error, stopProcess bool) {
	m.state = StateTearingDown

	// Reject any in-flight command first so no caller is left waiting on a
	// channel that is about to disappear.
	m.client.Close(cause)

	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}

	if stopProcess && m.sup.Running() {
		if err := m.sup.Stop(); err != nil {
			m.log.Error("failed to stop editor during teardown", "error", err)
		}
	}

	if m.snapshot != nil {
		if err := m.snapshot.Restore(); err != nil {
			m.log.Error("failed to restore project descriptor", "error", err)
		}
		m.snapshot = nil
	}
	if m.scriptPath != "" {
		if err := os.Remove(m.scriptPath); err != nil && !os.IsNotExist(err) {
			m.log.Error("failed to remove listener script", "error", err)
		}
		m.scriptPath = ""
	}

	m.sessionID = ""
	m.projectDir = ""
	m.state = StateIdle
}

// undoPreparationLocked reverts Preparing-phase mutations after a launch
// failure: best effort, the error already being reported wins.
func (m *Manager) undoPreparationLocked() {
	if m.snapshot != nil {
		if err := m.snapshot.Restore(); err != nil {
			m.log.Error("failed to restore project descriptor after launch failure", "error", err)
		}
		m.snapshot = nil
	}
	if m.scriptPath != "" {
		os.Remove(m.scriptPath)
		m.scriptPath = ""
	}
	m.sessionID = ""
	m.projectDir = ""
}

// watchDescriptor warns when project.godot changes outside the session.
// Our own writes happen strictly before the watch starts and after it
// stops, so any event here is an external edit that the teardown restore
// would clobber.
func (m *Manager) watchDescriptor(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Debug("descriptor watch unavailable", "error", err)
		return
	}
	if err := watcher.Add(path); err != nil {
		m.log.Debug("descriptor watch unavailable", "error", err)
		watcher.Close()
		return
	}
	m.watcher = watcher

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					m.log.Warn("project descriptor modified outside the session; those changes will be lost when the session ends", "path", ev.Name)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}
