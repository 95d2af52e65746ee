package api

import (
	"time"

	"github.com/craftwatch/core/sched"
)

// Schedule is one scheduled command.
type Schedule struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Command string `json:"command"`
	Enabled bool   `json:"enabled"`

	RunAt           int64  `json:"run_at,omitempty"` // once: unix timestamp
	TimeOfDay       string `json:"time_of_day,omitempty"`
	IntervalSeconds int64  `json:"interval_seconds,omitempty"`

	NextFireAt int64 `json:"next_fire_at,omitempty"` // unix timestamp
}

// Marshal converts the schedule to a scheduler job.
func (s *Schedule) Marshal() sched.Job {
	job := sched.Job{
		ID:        s.ID,
		Kind:      sched.Kind(s.Kind),
		Command:   s.Command,
		Enabled:   s.Enabled,
		TimeOfDay: s.TimeOfDay,
		Interval:  time.Duration(s.IntervalSeconds) * time.Second,
	}

	if s.RunAt != 0 {
		job.RunAt = time.Unix(s.RunAt, 0)
	}

	return job
}

// Unmarshal converts a scheduler job to its API representation.
func (s *Schedule) Unmarshal(job sched.Job) {
	s.ID = job.ID
	s.Kind = string(job.Kind)
	s.Command = job.Command
	s.Enabled = job.Enabled
	s.TimeOfDay = job.TimeOfDay
	s.IntervalSeconds = int64(job.Interval.Seconds())

	if !job.RunAt.IsZero() {
		s.RunAt = job.RunAt.Unix()
	}

	if !job.NextFireAt.IsZero() {
		s.NextFireAt = job.NextFireAt.Unix()
	}
}

// SetEnable is the request body for enabling or disabling a schedule.
type SetEnable struct {
	Enable bool `json:"enable"`
}
