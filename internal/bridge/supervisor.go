package bridge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultLogCapacity is the per-stream line budget for captured editor
// output.
const DefaultLogCapacity = 1000

// stopGracePeriod is how long Stop waits after the interrupt signal before
// force-killing the editor.
const stopGracePeriod = 2 * time.Second

// Output is a filtered view over the captured editor logs.
type Output struct {
	Stdout []string
	Stderr []string
}

// OutputOptions selects which captured lines to return.
type OutputOptions struct {
	// Tail limits each stream to its last N lines; 0 returns everything.
	Tail int

	// ErrorsOnly drops stdout and returns only the stderr stream.
	ErrorsOnly bool
}

// Supervisor runs the editor as a child process with piped stdio, tails
// both streams into bounded ring logs, and reports liveness and exit.
// At most one process is supervised at a time.
type Supervisor struct {
	log    *log.Logger
	logCap int

	// OnExit, when set, is invoked once per launched process after it
	// terminates for any reason other than an explicit Stop. Called from the
	// monitor goroutine; implementations must be safe to run concurrently
	// with Launch/Stop callers.
	OnExit func(err error)

	// OnLine, when set, observes every captured output line ("stdout" or
	// "stderr" stream tag). Used by the CLI to mirror editor output live.
	OnLine func(stream, line string)

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdout   *ringLog
	stderr   *ringLog
	stopping bool
	waitDone chan struct{}
}

// NewSupervisor creates a supervisor with the given per-stream log capacity
// (0 uses DefaultLogCapacity).
func NewSupervisor(logCapacity int, logger *log.Logger) *Supervisor {
	return &Supervisor{log: logger, logCap: logCapacity}
}

// Launch spawns the editor executable. A process already being supervised
// is stopped first. The returned error covers spawn failures only; later
// exits are reported through OnExit.
func (s *Supervisor) Launch(executable string, args []string) error {
	if s.Running() {
		s.log.Debug("stopping previous editor process before launch")
		if err := s.Stop(); err != nil {
			return err
		}
	}

	cmd := exec.Command(executable, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to capture stdout: %v", ErrProcess, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to capture stderr: %v", ErrProcess, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to launch %s: %v", ErrProcess, executable, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdout = newRingLog(s.logCap)
	s.stderr = newRingLog(s.logCap)
	s.stopping = false
	s.waitDone = make(chan struct{})
	outLog, errLog, waitDone := s.stdout, s.stderr, s.waitDone
	s.mu.Unlock()

	s.log.Info("editor process launched", "pid", cmd.Process.Pid, "executable", executable)

	var readers sync.WaitGroup
	readers.Add(2)
	go s.tail("stdout", stdout, outLog, &readers)
	go s.tail("stderr", stderr, errLog, &readers)
	go s.monitor(cmd, waitDone, &readers)

	return nil
}

// tail pumps one stream into its ring log line by line until EOF.
func (s *Supervisor) tail(stream string, r io.Reader, ring *ringLog, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		ring.Append(line)
		if s.OnLine != nil {
			s.OnLine(stream, line)
		}
	}
}

// monitor is the sole caller of cmd.Wait. It drains the stream readers
// first (Wait closes the pipes), clears the handle, and fires OnExit unless
// the exit was requested through Stop.
func (s *Supervisor) monitor(cmd *exec.Cmd, waitDone chan struct{}, readers *sync.WaitGroup) {
	readers.Wait()
	err := cmd.Wait()
	close(waitDone)

	s.mu.Lock()
	if s.cmd != cmd {
		// A newer launch already replaced us; nothing to clear.
		s.mu.Unlock()
		return
	}
	requested := s.stopping
	s.cmd = nil
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("editor process exited", "error", err)
	} else {
		s.log.Info("editor process exited cleanly")
	}

	if !requested && s.OnExit != nil {
		s.OnExit(err)
	}
}

// Stop terminates the supervised process: interrupt first, then a kill
// after the grace period. Captured logs remain readable afterwards. Calling
// Stop with nothing running is a reportable process error, not a crash.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	waitDone := s.waitDone
	if cmd == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no editor process is running", ErrProcess)
	}
	s.stopping = true
	s.mu.Unlock()

	s.log.Debug("stopping editor process", "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		// Interrupt can fail if the process just died; fall through to the
		// wait below, which settles either way.
		s.log.Debug("interrupt failed, will force kill", "error", err)
		cmd.Process.Kill()
	}

	select {
	case <-waitDone:
	case <-time.After(stopGracePeriod):
		s.log.Debug("editor ignored interrupt, killing", "pid", cmd.Process.Pid)
		cmd.Process.Kill()
		<-waitDone
	}
	return nil
}

// Running reports whether a process is currently supervised.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Pid returns the supervised process id, or 0 when nothing is running.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Output returns the requested view of the captured logs. It never blocks
// the running process and is callable whether or not one is running.
func (s *Supervisor) Output(opts OutputOptions) Output {
	s.mu.Lock()
	outLog, errLog := s.stdout, s.stderr
	s.mu.Unlock()

	var out Output
	if errLog != nil {
		out.Stderr = errLog.Tail(opts.Tail)
	}
	if outLog != nil && !opts.ErrorsOnly {
		out.Stdout = outLog.Tail(opts.Tail)
	}
	return out
}
