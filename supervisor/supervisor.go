package supervisor

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rgb-tools/iris-wallet-core/events"
)

const (
	// DefaultMaxStartAttempts is how many health probes are made before
	// the start is declared failed.
	DefaultMaxStartAttempts = 15

	// DefaultProbeInterval is the time between health probes while
	// waiting for the daemon to come up.
	DefaultProbeInterval = 2 * time.Second

	// DefaultMaxCloseAttempts is how many times the child state is
	// polled after a requested stop.
	DefaultMaxCloseAttempts = 30

	// DefaultCloseInterval is the time between child state polls after a
	// requested stop.
	DefaultCloseInterval = time.Second

	// startErrorCode is the code carried by an ErrorEvent when the
	// daemon never came up.
	startErrorCode = 500
)

var (
	// ErrAlreadyRunning is returned when Start is called while the
	// daemon is running.
	ErrAlreadyRunning = errors.New("node process already running")

	// ErrNotRunning is returned when Stop is called with no daemon
	// running.
	ErrNotRunning = errors.New("node process not running")

	// ErrCloseTimeout is returned by WaitForClose when the daemon is
	// still running after the close attempt budget was spent.
	ErrCloseTimeout = errors.New("node process still running after " +
		"close wait")
)

// State is the supervisor's view of the daemon process.
type State uint8

const (
	// StateNotStarted means no process has been launched yet.
	StateNotStarted State = iota

	// StateStarting means the process is up but its HTTP socket has not
	// answered yet.
	StateStarting

	// StateRunning means the daemon answered a health probe.
	StateRunning

	// StateStopping means a stop was requested and the supervisor is
	// waiting for the process to exit.
	StateStopping

	// StateStopped means the process exited after a requested stop.
	StateStopped

	// StateFailed means the process never came up or exited on its own.
	StateFailed
)

// String returns a stable name for the state, used in logs.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the configuration for the supervisor.
type Config struct {
	// ExecutablePath is the daemon binary.
	ExecutablePath string

	// Args are passed to the daemon verbatim.
	Args []string

	// LogDir, when set, receives the daemon's stdout and stderr in
	// rln-stdout.log and rln-stderr.log.
	LogDir string

	// Probe reports whether the daemon's HTTP socket answered. Any HTTP
	// response counts, including 4xx from a locked wallet. When nil a
	// GET against BaseURL+/nodeinfo is used.
	Probe func(ctx context.Context) bool

	// BaseURL is the daemon address probed by the default Probe.
	BaseURL string

	// ProbeTicker paces health probes. When nil a ticker at
	// DefaultProbeInterval is used. Tests inject a force ticker here.
	ProbeTicker ticker.Ticker

	// CloseTicker paces exit polls after a requested stop. When nil a
	// ticker at DefaultCloseInterval is used.
	CloseTicker ticker.Ticker

	// MaxStartAttempts overrides DefaultMaxStartAttempts when positive.
	MaxStartAttempts int

	// MaxCloseAttempts overrides DefaultMaxCloseAttempts when positive.
	MaxCloseAttempts int

	// Bus receives the supervisor's lifecycle events.
	Bus *events.Bus
}

// Supervisor owns the daemon child process. There is one per process; the
// handle is never shared.
type Supervisor struct {
	cfg Config

	mtx           sync.Mutex
	state         State
	cmd           *exec.Cmd
	stopRequested bool

	// exited is closed by the wait goroutine when the current child
	// process exits. It is replaced on every start.
	exited chan struct{}

	// closeDone is closed by the close loop once it has published its
	// verdict after a requested stop. It is created by Stop.
	closeDone chan struct{}

	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a supervisor. Zero-value timing fields fall back to the
// defaults.
func New(cfg Config) *Supervisor {
	if cfg.MaxStartAttempts <= 0 {
		cfg.MaxStartAttempts = DefaultMaxStartAttempts
	}
	if cfg.MaxCloseAttempts <= 0 {
		cfg.MaxCloseAttempts = DefaultMaxCloseAttempts
	}
	if cfg.ProbeTicker == nil {
		cfg.ProbeTicker = ticker.New(DefaultProbeInterval)
	}
	if cfg.CloseTicker == nil {
		cfg.CloseTicker = ticker.New(DefaultCloseInterval)
	}
	if cfg.Probe == nil {
		cfg.Probe = defaultProbe(cfg.BaseURL)
	}

	return &Supervisor{
		cfg:  cfg,
		quit: make(chan struct{}),
	}
}

// defaultProbe builds the nodeinfo health probe. The daemon-is-up signal is
// the socket answering, not the call succeeding, so any HTTP status counts.
func defaultProbe(baseURL string) func(ctx context.Context) bool {
	client := &http.Client{Timeout: 5 * time.Second}

	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, baseURL+"/nodeinfo", nil,
		)
		if err != nil {
			return false
		}

		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()

		return true
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// Start launches the daemon and begins health probing. It returns once the
// process is spawned; readiness arrives as a StartedEvent.
func (s *Supervisor) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	switch s.state {
	case StateStarting, StateRunning, StateStopping:
		s.publish(AlreadyRunningEvent{})
		return ErrAlreadyRunning
	}

	cmd := exec.Command(s.cfg.ExecutablePath, s.cfg.Args...)

	if s.cfg.LogDir != "" {
		if err := s.redirectOutput(cmd); err != nil {
			return err
		}
	}

	if err := cmd.Start(); err != nil {
		s.state = StateFailed
		s.publish(ErrorEvent{
			Code:    startErrorCode,
			Message: "Unable to start server",
		})
		return err
	}

	log.Infof("Launched node process %s (pid=%d)", s.cfg.ExecutablePath,
		cmd.Process.Pid)

	s.cmd = cmd
	s.state = StateStarting
	s.stopRequested = false
	s.exited = make(chan struct{})

	s.wg.Add(1)
	go s.waitForExit(cmd, s.exited)
	go s.probeLoop(s.exited)

	return nil
}

// redirectOutput wires the child's stdout and stderr to files in LogDir.
func (s *Supervisor) redirectOutput(cmd *exec.Cmd) error {
	if err := os.MkdirAll(s.cfg.LogDir, 0700); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	stdout, err := os.OpenFile(
		filepath.Join(s.cfg.LogDir, "rln-stdout.log"), flags, 0600,
	)
	if err != nil {
		return err
	}
	stderr, err := os.OpenFile(
		filepath.Join(s.cfg.LogDir, "rln-stderr.log"), flags, 0600,
	)
	if err != nil {
		stdout.Close()
		return err
	}

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return nil
}

// waitForExit reaps the child and reacts to exits the supervisor did not
// ask for. It is not tracked by the waitgroup since it only returns when the
// child exits, and a child refusing to die must not block Shutdown.
func (s *Supervisor) waitForExit(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stopRequested {
		return
	}

	// The process died on its own.
	code := 0
	msg := "node process exited unexpectedly"
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}

	log.Errorf("Node process exited unexpectedly (code=%d): %v", code, err)

	s.state = StateFailed
	s.publish(ErrorEvent{Code: code, Message: msg})
}

// probeLoop ticks the health probe until the daemon answers or the attempt
// budget is spent.
func (s *Supervisor) probeLoop(exited chan struct{}) {
	defer s.wg.Done()

	s.cfg.ProbeTicker.Resume()
	defer s.cfg.ProbeTicker.Stop()

	attempts := 0
	for {
		select {
		case <-s.cfg.ProbeTicker.Ticks():
			if attempts >= s.cfg.MaxStartAttempts {
				log.Errorf("Node did not answer after %d "+
					"probes", attempts)

				s.mtx.Lock()
				s.state = StateFailed
				s.publish(ErrorEvent{
					Code:    startErrorCode,
					Message: "Unable to start server",
				})
				s.publish(LoaderEvent{Show: false})
				s.mtx.Unlock()
				return
			}

			ctx, cancel := context.WithTimeout(
				context.Background(), 5*time.Second,
			)
			alive := s.cfg.Probe(ctx)
			cancel()

			if alive {
				log.Infof("Node answered after %d probes",
					attempts+1)

				s.mtx.Lock()
				if s.state == StateStarting {
					s.state = StateRunning
				}
				s.publish(StartedEvent{})
				s.publish(LoaderEvent{Show: false})
				s.mtx.Unlock()
				return
			}

			attempts++

		case <-exited:
			return

		case <-s.quit:
			return
		}
	}
}

// Stop asks the daemon to terminate and starts a bounded wait for it to
// exit. The outcome arrives as a FinishedOnCloseEvent or a
// FinishedOnCloseErrorEvent; callers that need to block on the outcome use
// WaitForClose.
func (s *Supervisor) Stop() error {
	s.mtx.Lock()

	if s.state != StateRunning && s.state != StateStarting {
		s.mtx.Unlock()
		return ErrNotRunning
	}

	s.stopRequested = true
	s.state = StateStopping
	s.closeDone = make(chan struct{})
	cmd := s.cmd
	exited := s.exited
	done := s.closeDone
	s.mtx.Unlock()

	log.Infof("Stopping node process (pid=%d)", cmd.Process.Pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.closeLoop(exited, done)

	return nil
}

// WaitForClose blocks until the close loop started by Stop has published its
// verdict. It returns nil when the daemon exited within the wait window and
// ErrCloseTimeout when the attempt budget lapsed with the daemon still up. A
// call without a preceding Stop returns immediately.
func (s *Supervisor) WaitForClose() error {
	s.mtx.Lock()
	done := s.closeDone
	s.mtx.Unlock()

	if done == nil {
		return nil
	}
	<-done

	if s.State() != StateStopped {
		return ErrCloseTimeout
	}
	return nil
}

// closeLoop polls for the child's exit after a requested stop. A budget
// lapse leaves the state at Stopping so the caller can tell a clean close
// from an abandoned one.
func (s *Supervisor) closeLoop(exited, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	s.cfg.CloseTicker.Resume()
	defer s.cfg.CloseTicker.Stop()

	attempts := 0
	for {
		select {
		case <-exited:
			log.Info("Node process exited cleanly")

			s.mtx.Lock()
			s.state = StateStopped
			s.publish(TerminatedEvent{})
			s.publish(FinishedOnCloseEvent{})
			s.mtx.Unlock()
			return

		case <-s.cfg.CloseTicker.Ticks():
			attempts++
			if attempts >= s.cfg.MaxCloseAttempts {
				log.Errorf("Node still running after %d "+
					"close polls", attempts)

				s.publishLocked(FinishedOnCloseErrorEvent{})
				return
			}

		case <-s.quit:
			return
		}
	}
}

// Shutdown releases the supervisor's goroutines. It does not touch the
// child process; call Stop and WaitForClose first for a graceful exit. It is
// safe to call more than once.
func (s *Supervisor) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}

// publish sends an event to the bus. Callers hold the state mutex.
func (s *Supervisor) publish(event events.Event) {
	if s.cfg.Bus == nil {
		return
	}
	if err := s.cfg.Bus.Publish(event); err != nil {
		log.Warnf("Dropping supervisor event %T: %v", event, err)
	}
}

// publishLocked is publish for callers not holding the state mutex.
func (s *Supervisor) publishLocked(event events.Event) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.publish(event)
}
