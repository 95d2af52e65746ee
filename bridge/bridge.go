// Package bridge is the single entry point for everything that wants to
// talk to a supervised game server. It owns the supervisor, the console
// buffer, the remote console client, and the scheduler for one configured
// server instance, and routes commands to the right sink.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/craftwatch/core/console"
	"github.com/craftwatch/core/log"
	"github.com/craftwatch/core/process"
	"github.com/craftwatch/core/rcon"
	"github.com/craftwatch/core/sched"
)

// Notifier receives noteworthy panel events, e.g. for webhook delivery.
// Implementations must not block.
type Notifier interface {
	Notify(title, message string)
}

// Config is the configuration of a bridge.
type Config struct {
	// Process describes the supervised child process. The Console field
	// is overridden with the bridge's own buffer.
	Process process.Config

	// ConsoleCapacity is the size of the console replay buffer.
	ConsoleCapacity int

	// RCON configures the remote console session. Ignored unless
	// RCONEnable is set.
	RCON       rcon.Config
	RCONEnable bool

	// RCONFallback routes RconCommand to the stdin path when the remote
	// console is unavailable.
	RCONFallback bool

	// JobSink selects the sink for scheduled commands, "stdin" or
	// "rcon". Defaults to "stdin".
	JobSink string

	SchedulerInterval time.Duration
	SchedulerStore    sched.Store

	Notifier Notifier
	Logger   log.Logger
}

// Bridge is the facade over one supervised server instance.
type Bridge struct {
	supervisor process.Supervisor
	buffer     *console.Buffer
	rcon       *rcon.Client
	scheduler  *sched.Scheduler
	tracker    *tracker

	jobSink  CommandSink
	fallback bool
	notifier Notifier
	logger   log.Logger

	rconPoll struct {
		fails    int
		disabled bool
		lock     sync.Mutex
	}
}

// New wires up all components for one server instance. The scheduler's
// ticking loop is started; Close stops it again.
func New(config Config) (*Bridge, error) {
	b := &Bridge{
		tracker:  newTracker(),
		fallback: config.RCONFallback,
		notifier: config.Notifier,
		logger:   config.Logger,
	}

	if b.logger == nil {
		b.logger = log.New("Bridge")
	}

	b.buffer = console.NewBuffer(config.ConsoleCapacity)
	b.buffer.OnAppend(func(entry console.Entry) {
		if entry.Origin == console.OriginStdout || entry.Origin == console.OriginStderr {
			b.tracker.observe(entry.Text, entry.Timestamp)
		}
	})

	processConfig := config.Process
	processConfig.Console = b.buffer

	if processConfig.Logger == nil {
		processConfig.Logger = b.logger.WithComponent("Supervisor")
	}

	supervisor, err := process.New(processConfig)
	if err != nil {
		return nil, fmt.Errorf("creating supervisor: %w", err)
	}

	b.supervisor = supervisor

	if config.RCONEnable {
		rconConfig := config.RCON
		if rconConfig.Logger == nil {
			rconConfig.Logger = b.logger.WithComponent("RCON")
		}

		b.rcon = rcon.New(rconConfig)
	}

	b.jobSink = &stdinSink{supervisor: supervisor}

	if config.JobSink == "rcon" {
		if b.rcon == nil {
			return nil, fmt.Errorf("job sink is rcon but rcon is not enabled")
		}

		b.jobSink = &rconSink{client: b.rcon}
	}

	scheduler, err := sched.New(sched.Config{
		Interval: config.SchedulerInterval,
		Store:    config.SchedulerStore,
		Dispatch: b.dispatchJob,
		Logger:   b.logger.WithComponent("Scheduler"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	b.scheduler = scheduler
	b.scheduler.Start()

	return b, nil
}

// Close stops the scheduler loop and tears down the remote console
// session. The supervised process is left alone; stopping it is an
// explicit, separate decision.
func (b *Bridge) Close() {
	b.scheduler.Stop()

	if b.rcon != nil {
		b.rcon.Close()
	}
}

// Start launches the server process.
func (b *Bridge) Start() error {
	err := b.supervisor.Start()

	if err == nil {
		b.notify("Server starting", "The server process is being started.")
	}

	return err
}

// Stop shuts the server process down gracefully.
func (b *Bridge) Stop(ctx context.Context) error {
	active := b.supervisor.State().IsActive()

	err := b.supervisor.Stop(ctx)

	if err == nil && active {
		b.notify("Server stopped", "The server process has been stopped.")
	}

	return err
}

// Restart is Stop followed by Start.
func (b *Bridge) Restart(ctx context.Context) error {
	return b.supervisor.Restart(ctx)
}

// Status returns the current process status.
func (b *Bridge) Status() process.Status {
	return b.supervisor.Status()
}

// State returns the current process state.
func (b *Bridge) State() process.State {
	return b.supervisor.State()
}

// Command sends a command line on the stdin path.
func (b *Bridge) Command(text string) error {
	return b.supervisor.WriteLine(text)
}

// RconCommand sends a command over the remote console and returns its
// reply. If the remote console is unavailable and fallback is configured,
// the command is sent on the stdin path instead and the reply is empty.
// Authentication failures are configuration errors and never fall back.
func (b *Bridge) RconCommand(ctx context.Context, text string) (string, error) {
	if b.rcon == nil {
		if b.fallback {
			return "", b.Command(text)
		}

		return "", ErrRconUnavailable
	}

	response, err := b.rcon.Execute(ctx, text)
	if err == nil {
		return response, nil
	}

	if b.fallback && !errors.Is(err, rcon.ErrAuthFailed) {
		b.logger.Debug().WithError(err).Log("Falling back to stdin")

		if werr := b.Command(text); werr == nil {
			return "", nil
		}
	}

	return "", err
}

// ReadConsole returns the console entries newer than lastID together with
// the cursor for the caller's next poll. The cursor is the id of the last
// returned entry, never the live buffer head: an append landing after the
// read must stay ahead of the cursor or it would never be delivered.
func (b *Bridge) ReadConsole(lastID uint64) ([]console.Entry, uint64) {
	entries := b.buffer.ReadSince(lastID)

	if len(entries) != 0 {
		lastID = entries[len(entries)-1].ID
	}

	return entries, lastID
}

// ConsoleGeneration identifies the current run of the panel. Pollers that
// cache a cursor across panel restarts compare it to detect id resets.
func (b *Bridge) ConsoleGeneration() uint64 {
	return b.buffer.Generation()
}

// Players returns the online player set. If the remote console is
// enabled, it is polled first and its answer replaces the log-derived
// set; a failing poll falls back to log-based tracking only. After
// repeated failures the poll is disabled to avoid hammering a dead
// endpoint.
func (b *Bridge) Players(ctx context.Context) []Player {
	if b.rcon != nil && !b.pollDisabled() {
		names, err := b.rcon.Players(ctx)
		if err != nil {
			b.pollFailed(err)
		} else {
			b.pollSucceeded()
			b.tracker.setOnline(names, time.Now())
		}
	}

	return b.tracker.players()
}

func (b *Bridge) pollDisabled() bool {
	b.rconPoll.lock.Lock()
	defer b.rconPoll.lock.Unlock()

	return b.rconPoll.disabled
}

func (b *Bridge) pollFailed(err error) {
	b.rconPoll.lock.Lock()
	defer b.rconPoll.lock.Unlock()

	b.rconPoll.fails++

	b.logger.Debug().WithError(err).WithField("attempt", b.rconPoll.fails).Log("Player list poll failed")

	if b.rconPoll.fails >= 3 && !b.rconPoll.disabled {
		b.rconPoll.disabled = true
		b.logger.Warn().WithError(err).Log("Disabling player list polling after repeated failures, tracking players from the console log only")
	}
}

func (b *Bridge) pollSucceeded() {
	b.rconPoll.lock.Lock()
	defer b.rconPoll.lock.Unlock()

	b.rconPoll.fails = 0
}

// RecentPlayers returns up to limit known players, most recently seen
// first.
func (b *Bridge) RecentPlayers(limit int) []Player {
	return b.tracker.recent(limit)
}

// Jobs returns all scheduled jobs.
func (b *Bridge) Jobs() []sched.Job {
	return b.scheduler.List()
}

// Job returns one scheduled job.
func (b *Bridge) Job(id string) (sched.Job, error) {
	return b.scheduler.Get(id)
}

// AddJob creates a new scheduled job.
func (b *Bridge) AddJob(job sched.Job) (sched.Job, error) {
	return b.scheduler.Add(job)
}

// UpdateJob replaces a scheduled job.
func (b *Bridge) UpdateJob(id string, job sched.Job) (sched.Job, error) {
	return b.scheduler.Update(id, job)
}

// DeleteJob removes a scheduled job.
func (b *Bridge) DeleteJob(id string) error {
	return b.scheduler.Delete(id)
}

// EnableJob enables or disables a scheduled job.
func (b *Bridge) EnableJob(id string, enable bool) (sched.Job, error) {
	return b.scheduler.Enable(id, enable)
}

// dispatchJob delivers a due job's command through the configured sink,
// exactly like a manually entered console command.
func (b *Bridge) dispatchJob(command string) error {
	if b.supervisor.State() != process.StateRunning {
		return process.ErrNotRunning
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.jobSink.Send(ctx, command); err != nil {
		return err
	}

	b.notify("Scheduled command executed", fmt.Sprintf("`%s` ran by scheduler.", command))

	return nil
}

func (b *Bridge) notify(title, message string) {
	if b.notifier == nil {
		return
	}

	b.notifier.Notify(title, message)
}
