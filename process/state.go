package process

// State is the lifecycle state of the supervised process.
//
// stopped - Process is not running
//
//	starting - if the process has been actively started
//
// starting - Process has been launched but is not yet confirmed alive
//
//	running - first output arrived or the grace period elapsed
//	stopping - if the process should be stopped right away
//	crashed - if the process couldn't be launched or died immediately
//	stopped - if the process exited cleanly before being confirmed
//
// running - Process is running
//
//	stopping - if the process has been actively stopped
//	stopped - if the process exited cleanly by itself
//	crashed - if the process exited abnormally while no stop was requested
//
// stopping - Process has been asked to shut down and will be killed after
// the grace period
//
//	stopped - the process exited, gracefully or by force
//
// crashed - Process exited abnormally; an automatic restart may be pending
//
//	starting - if the process has been restarted, manually or automatically
//	stopped - if a stop was requested while waiting for the restart
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateCrashed  State = "crashed"
)

func (s State) String() string {
	return string(s)
}

// IsActive returns whether the state represents a live child process.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}

// States is the cumulative history of states the process had.
type States struct {
	Stopped  uint64
	Starting uint64
	Running  uint64
	Stopping uint64
	Crashed  uint64
}

func (s *States) count(state State) {
	switch state {
	case StateStopped:
		s.Stopped++
	case StateStarting:
		s.Starting++
	case StateRunning:
		s.Running++
	case StateStopping:
		s.Stopping++
	case StateCrashed:
		s.Crashed++
	}
}

var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed, StateStopped},
	StateRunning:  {StateStopping, StateStopped, StateCrashed},
	StateStopping: {StateStopped},
	StateCrashed:  {StateStarting, StateStopped},
}

func allowed(from, to State) bool {
	for _, state := range transitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
