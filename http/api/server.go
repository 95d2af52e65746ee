package api

import (
	"github.com/craftwatch/core/process"
)

// ServerStates is the cumulative history of lifecycle states.
type ServerStates struct {
	Stopped  uint64 `json:"stopped"`
	Starting uint64 `json:"starting"`
	Running  uint64 `json:"running"`
	Stopping uint64 `json:"stopping"`
	Crashed  uint64 `json:"crashed"`
}

// ServerStatus is the current condition of the supervised server process.
type ServerStatus struct {
	PID           int32        `json:"pid"`
	State         string       `json:"state"`
	States        ServerStates `json:"states"`
	Order         string       `json:"order"`
	StartedAt     int64        `json:"started_at"` // unix timestamp, 0 if not running
	UptimeSeconds int64        `json:"uptime_seconds"`
	ExitCode      int          `json:"exit_code"`
	RestartAt     int64        `json:"restart_at"` // unix timestamp, 0 if none scheduled
	LastError     string       `json:"last_error,omitempty"`
}

// Unmarshal converts a supervisor status to its API representation.
func (s *ServerStatus) Unmarshal(status process.Status) {
	s.PID = status.PID
	s.State = status.State.String()
	s.States = ServerStates{
		Stopped:  status.States.Stopped,
		Starting: status.States.Starting,
		Running:  status.States.Running,
		Stopping: status.States.Stopping,
		Crashed:  status.States.Crashed,
	}
	s.Order = status.Order
	s.UptimeSeconds = int64(status.Uptime.Seconds())
	s.ExitCode = status.ExitCode
	s.LastError = status.LastError

	if !status.StartedAt.IsZero() {
		s.StartedAt = status.StartedAt.Unix()
	}

	if !status.RestartAt.IsZero() {
		s.RestartAt = status.RestartAt.Unix()
	}
}
