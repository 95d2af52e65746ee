// Package process supervises a single long-running game-server child
// process. It drives the lifecycle state machine, drains the child's output
// into a console buffer, and accepts command writes on the child's stdin.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/craftwatch/core/console"
	"github.com/craftwatch/core/log"
)

// Supervisor represents a supervised process and ways to control it.
type Supervisor interface {
	// Start launches the child process. It is only valid while the
	// process is stopped or crashed, otherwise ErrAlreadyRunning is
	// returned. A manual start resets the crash-loop budget.
	Start() error

	// Stop shuts the child process down. The graceful shutdown command is
	// written to the child's stdin, and if the process is still alive
	// after the configured grace period it is killed. Stop is idempotent
	// while the process is stopped and always ends in the stopped state.
	Stop(ctx context.Context) error

	// Restart is Stop followed by Start.
	Restart(ctx context.Context) error

	// WriteLine writes text followed by a newline to the child's stdin.
	// It is only valid while the process is running, otherwise
	// ErrNotRunning is returned. The line is echoed into the console
	// buffer before it is handed to the child so the echo always precedes
	// whatever output the command produces.
	WriteLine(text string) error

	// Status returns a snapshot of the current process status.
	Status() Status

	// State returns the current lifecycle state.
	State() State
}

// Config is the configuration of a supervised process.
type Config struct {
	Command         []string        // Command line of the child process, first element is the binary.
	Dir             string          // Working directory of the child process.
	Env             []string        // Environment of the child process, nil inherits the panel's environment.
	GracefulCommand string          // Command written to stdin on Stop before force-terminating.
	StopTimeout     time.Duration   // How long to wait for the process to exit after the graceful command.
	StartGrace      time.Duration   // How long after launch the process is considered running if it didn't exit.
	AutoRestart     bool            // Whether to restart the process after an unexpected exit.
	RestartDelay    time.Duration   // Duration to wait before an automatic restart.
	CrashLimit      int             // Number of crashes within CrashWindow that suspends auto-restart.
	CrashWindow     time.Duration   // Window for counting crashes towards CrashLimit.
	Console         *console.Buffer // Buffer receiving the child's output lines.
	OnStateChange   func(from, to State)
	OnCrashLoop     func()
	Logger          log.Logger
}

// Status represents the current status of a supervised process.
type Status struct {
	PID       int32         // Last known process id, -1 if not running.
	State     State         // Current lifecycle state.
	States    States        // Cumulative history of states.
	Order     string        // Wanted condition, either "start" or "stop".
	StartedAt time.Time     // Time of the last successful launch.
	Uptime    time.Duration // Time since the last successful launch, 0 if not running.
	ExitCode  int           // Exit code of the last exit, -1 if unknown.
	RestartAt time.Time     // Time of the next automatic restart, zero if none is scheduled.
	LastError string        // Last reportable error condition, e.g. a suspended crash loop.
}

type supervisor struct {
	binary          string
	args            []string
	dir             string
	env             []string
	gracefulCommand string
	stopTimeout     time.Duration
	startGrace      time.Duration

	autoRestart  bool
	restartDelay time.Duration
	crashLimit   int
	crashWindow  time.Duration

	buffer *console.Buffer
	logger log.Logger

	state struct {
		current State
		states  States
		lock    sync.RWMutex
	}

	order struct {
		order string
		lock  sync.Mutex
	}

	proc struct {
		cmd       *exec.Cmd
		stdin     io.WriteCloser
		pid       int32
		startedAt time.Time
		exitCode  int
		exited    chan struct{}
		lock      sync.Mutex
	}

	grace struct {
		timer *time.Timer
		lock  sync.Mutex
	}

	restart struct {
		timer   *time.Timer
		at      time.Time
		crashes []time.Time
		lock    sync.Mutex
	}

	lastErr struct {
		err  error
		lock sync.Mutex
	}

	launchLock sync.Mutex
	writeLock  sync.Mutex

	onStateChange func(from, to State)
	onCrashLoop   func()
}

var _ Supervisor = &supervisor{}

// New creates a new supervisor for the process described by config.
func New(config Config) (Supervisor, error) {
	if len(config.Command) == 0 {
		return nil, fmt.Errorf("no command given")
	}

	s := &supervisor{
		binary:          config.Command[0],
		args:            config.Command[1:],
		dir:             config.Dir,
		env:             config.Env,
		gracefulCommand: config.GracefulCommand,
		stopTimeout:     config.StopTimeout,
		startGrace:      config.StartGrace,
		autoRestart:     config.AutoRestart,
		restartDelay:    config.RestartDelay,
		crashLimit:      config.CrashLimit,
		crashWindow:     config.CrashWindow,
		buffer:          config.Console,
		logger:          config.Logger,
		onStateChange:   config.OnStateChange,
		onCrashLoop:     config.OnCrashLoop,
	}

	if s.stopTimeout <= 0 {
		s.stopTimeout = 30 * time.Second
	}

	if s.startGrace <= 0 {
		s.startGrace = 3 * time.Second
	}

	if s.restartDelay <= 0 {
		s.restartDelay = 5 * time.Second
	}

	if s.crashLimit <= 0 {
		s.crashLimit = 3
	}

	if s.crashWindow <= 0 {
		s.crashWindow = 5 * time.Minute
	}

	if s.buffer == nil {
		s.buffer = console.NewBuffer(0)
	}

	if s.logger == nil {
		s.logger = log.New("Supervisor")
	}

	s.state.current = StateStopped
	s.order.order = "stop"
	s.proc.pid = -1
	s.proc.exitCode = -1

	return s, nil
}

// setState transitions to the given state if the transition is allowed
// and returns the previous state.
func (s *supervisor) setState(state State) (State, error) {
	s.state.lock.Lock()

	prev := s.state.current

	if prev == state {
		s.state.lock.Unlock()
		return prev, nil
	}

	if !allowed(prev, state) {
		s.state.lock.Unlock()
		return prev, fmt.Errorf("can't change from state %s to %s", prev, state)
	}

	s.state.current = state
	s.state.states.count(state)

	s.state.lock.Unlock()

	s.logger.Debug().WithFields(log.Fields{
		"from": prev,
		"to":   state,
	}).Log("State changed")

	if s.onStateChange != nil {
		s.onStateChange(prev, state)
	}

	return prev, nil
}

func (s *supervisor) getState() State {
	s.state.lock.RLock()
	defer s.state.lock.RUnlock()

	return s.state.current
}

func (s *supervisor) setOrder(order string) {
	s.order.lock.Lock()
	defer s.order.lock.Unlock()

	s.order.order = order
}

func (s *supervisor) getOrder() string {
	s.order.lock.Lock()
	defer s.order.lock.Unlock()

	return s.order.order
}

func (s *supervisor) State() State {
	return s.getState()
}

func (s *supervisor) Status() Status {
	s.state.lock.RLock()
	state := s.state.current
	states := s.state.states
	s.state.lock.RUnlock()

	s.proc.lock.Lock()
	pid := s.proc.pid
	startedAt := s.proc.startedAt
	exitCode := s.proc.exitCode
	s.proc.lock.Unlock()

	status := Status{
		PID:      pid,
		State:    state,
		States:   states,
		Order:    s.getOrder(),
		ExitCode: exitCode,
	}

	if state.IsActive() {
		status.StartedAt = startedAt
		status.Uptime = time.Since(startedAt)
	}

	s.restart.lock.Lock()
	if s.restart.timer != nil {
		status.RestartAt = s.restart.at
	}
	s.restart.lock.Unlock()

	s.lastErr.lock.Lock()
	if s.lastErr.err != nil {
		status.LastError = s.lastErr.err.Error()
	}
	s.lastErr.lock.Unlock()

	return status
}

func (s *supervisor) setLastError(err error) {
	s.lastErr.lock.Lock()
	defer s.lastErr.lock.Unlock()

	s.lastErr.err = err
}

func (s *supervisor) Start() error {
	if s.getState().IsActive() {
		return ErrAlreadyRunning
	}

	s.setOrder("start")
	s.setLastError(nil)

	s.restart.lock.Lock()
	s.restart.crashes = nil
	s.restart.lock.Unlock()

	return s.launch()
}

// launch starts the child process. It is called by Start and by the
// automatic restart timer.
func (s *supervisor) launch() error {
	s.launchLock.Lock()
	defer s.launchLock.Unlock()

	if s.getState().IsActive() {
		return ErrAlreadyRunning
	}

	s.unscheduleRestart()

	if _, err := s.setState(StateStarting); err != nil {
		return err
	}

	s.logger.Info().Log("Starting")

	cmd := exec.Command(s.binary, s.args...)
	cmd.Dir = s.dir
	cmd.Env = s.env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.launchFailed(err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.launchFailed(err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.launchFailed(err)
	}

	if err := cmd.Start(); err != nil {
		return s.launchFailed(err)
	}

	exited := make(chan struct{})

	s.proc.lock.Lock()
	s.proc.cmd = cmd
	s.proc.stdin = stdin
	s.proc.pid = int32(cmd.Process.Pid)
	s.proc.startedAt = time.Now()
	s.proc.exitCode = -1
	s.proc.exited = exited
	s.proc.lock.Unlock()

	s.buffer.Append(console.OriginSystem, fmt.Sprintf("Server process started (pid %d)", cmd.Process.Pid))

	go s.reader(stdout, console.OriginStdout)
	go s.reader(stderr, console.OriginStderr)
	go s.waiter(cmd, exited)

	// The process is confirmed alive by its first output line or by
	// surviving the grace period.
	s.grace.lock.Lock()
	s.grace.timer = time.AfterFunc(s.startGrace, s.confirmRunning)
	s.grace.lock.Unlock()

	return nil
}

func (s *supervisor) launchFailed(err error) error {
	s.logger.WithError(err).Error().Log("Starting failed")
	s.buffer.Append(console.OriginSystem, fmt.Sprintf("Failed to start server process: %s", err))

	s.setState(StateCrashed)
	s.crashed()

	return fmt.Errorf("starting process: %w", err)
}

// confirmRunning promotes the state from starting to running. It is a
// no-op in any other state.
func (s *supervisor) confirmRunning() {
	if s.getState() != StateStarting {
		return
	}

	if _, err := s.setState(StateRunning); err == nil {
		s.logger.Info().Log("Started")
	}
}

// reader drains one output stream of the child process into the console
// buffer. It terminates itself when the stream hits EOF on process exit.
func (s *supervisor) reader(r io.Reader, origin console.Origin) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanLines)

	for scanner.Scan() {
		s.buffer.Append(origin, scanner.Text())
		s.confirmRunning()
	}

	if err := scanner.Err(); err != nil {
		s.logger.Debug().WithError(err).Log("Reader stopped")
	}
}

// waiter waits for the child process to exit, classifies the exit, and
// schedules an automatic restart if applicable.
func (s *supervisor) waiter(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()

	exitCode := 0
	if err != nil {
		exitCode = -1
		if exiterr, ok := err.(*exec.ExitError); ok {
			exitCode = exiterr.ExitCode()
		}
	}

	s.grace.lock.Lock()
	if s.grace.timer != nil {
		s.grace.timer.Stop()
		s.grace.timer = nil
	}
	s.grace.lock.Unlock()

	s.proc.lock.Lock()
	s.proc.pid = -1
	s.proc.exitCode = exitCode
	s.proc.lock.Unlock()

	s.buffer.Append(console.OriginSystem, fmt.Sprintf("Server process exited with code %d", exitCode))

	if s.getOrder() == "stop" || exitCode == 0 {
		s.setState(StateStopped)
		s.logger.Info().WithField("exit_code", exitCode).Log("Stopped")
	} else {
		s.setState(StateCrashed)
		s.logger.Warn().WithField("exit_code", exitCode).Log("Crashed")
		s.crashed()
	}

	close(exited)
}

// crashed records a crash and either schedules an automatic restart or,
// if the crash budget within the window is exhausted, suspends
// auto-restart and escalates.
func (s *supervisor) crashed() {
	if !s.autoRestart || s.getOrder() != "start" {
		return
	}

	now := time.Now()

	s.restart.lock.Lock()

	crashes := s.restart.crashes[:0]
	for _, t := range s.restart.crashes {
		if now.Sub(t) <= s.crashWindow {
			crashes = append(crashes, t)
		}
	}
	crashes = append(crashes, now)
	s.restart.crashes = crashes

	count := len(crashes)

	s.restart.lock.Unlock()

	if count >= s.crashLimit {
		s.setLastError(ErrCrashLoop)

		s.logger.Error().WithFields(log.Fields{
			"crashes": count,
			"window":  s.crashWindow,
		}).Log("Auto-restart suspended")

		s.buffer.Append(console.OriginSystem, fmt.Sprintf("Auto-restart suspended after %d crashes within %s", count, s.crashWindow))

		if s.onCrashLoop != nil {
			s.onCrashLoop()
		}

		return
	}

	s.scheduleRestart(s.restartDelay)
}

func (s *supervisor) scheduleRestart(delay time.Duration) {
	s.restart.lock.Lock()
	defer s.restart.lock.Unlock()

	if s.restart.timer != nil {
		s.restart.timer.Stop()
	}

	s.logger.Info().Log("Scheduling restart in %s", delay)

	s.restart.at = time.Now().Add(delay)
	s.restart.timer = time.AfterFunc(delay, func() {
		if s.getOrder() != "start" {
			return
		}

		s.launch()
	})
}

func (s *supervisor) unscheduleRestart() {
	s.restart.lock.Lock()
	defer s.restart.lock.Unlock()

	if s.restart.timer == nil {
		return
	}

	s.restart.timer.Stop()
	s.restart.timer = nil
}

func (s *supervisor) Stop(ctx context.Context) error {
	s.setOrder("stop")
	s.unscheduleRestart()

	state := s.getState()

	if state == StateStopped {
		return nil
	}

	if state == StateCrashed {
		s.setState(StateStopped)
		return nil
	}

	// Taking the launch lock makes sure a concurrent launch has fully
	// published the child process handle before it is snapshotted here.
	s.launchLock.Lock()
	s.proc.lock.Lock()
	cmd := s.proc.cmd
	stdin := s.proc.stdin
	exited := s.proc.exited
	s.proc.lock.Unlock()
	s.launchLock.Unlock()

	if cmd == nil {
		s.setState(StateStopped)
		return nil
	}

	s.setState(StateStopping)

	s.logger.Info().Log("Stopping")

	// Without a graceful command there is nothing to wait for, the
	// process is killed right away.
	if len(s.gracefulCommand) == 0 || stdin == nil {
		cmd.Process.Kill()
		<-exited

		return nil
	}

	s.writeLock.Lock()
	s.buffer.Append(console.OriginCommand, s.gracefulCommand)
	io.WriteString(stdin, s.gracefulCommand+"\n")
	s.writeLock.Unlock()

	timeout := time.NewTimer(s.stopTimeout)
	defer timeout.Stop()

	select {
	case <-exited:
	case <-timeout.C:
		s.logger.Warn().Log("Graceful shutdown timed out after %s, killing process", s.stopTimeout)
		s.buffer.Append(console.OriginSystem, "Graceful shutdown timed out, killing server process")

		cmd.Process.Kill()
		<-exited
	case <-ctx.Done():
		cmd.Process.Kill()
		<-exited

		return ctx.Err()
	}

	return nil
}

func (s *supervisor) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}

	return s.Start()
}

func (s *supervisor) WriteLine(text string) error {
	if s.getState() != StateRunning {
		return ErrNotRunning
	}

	s.proc.lock.Lock()
	stdin := s.proc.stdin
	s.proc.lock.Unlock()

	if stdin == nil {
		return ErrNotRunning
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.buffer.Append(console.OriginCommand, text)

	if _, err := io.WriteString(stdin, text+"\n"); err != nil {
		return fmt.Errorf("writing to stdin: %w", err)
	}

	return nil
}

// scanLines splits the data on \r, \n, or \r\n line endings.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	// Skip leading line breaks.
	start := 0
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
	}

	// Scan until a line break, marking the end of a line.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + width, data[start:i], nil
		}
	}

	// At EOF, return a final non-terminated line.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}

	return start, nil, nil
}
