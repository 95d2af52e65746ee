package sched

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

// Kind selects the firing policy of a job.
type Kind string

const (
	// KindOnce fires at an absolute instant and disables itself
	// afterwards. It never fires twice.
	KindOnce Kind = "once"

	// KindDaily fires when the wall clock crosses a time of day, every
	// day.
	KindDaily Kind = "daily"

	// KindInterval fires every interval. The next fire is computed
	// relative to the actual fire, not the originally scheduled instant,
	// so a long stall results in exactly one fire instead of a burst of
	// catch-up fires.
	KindInterval Kind = "interval"
)

// Job is one scheduled command.
type Job struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Command string `json:"command"`
	Enabled bool   `json:"enabled"`

	RunAt     time.Time     `json:"run_at,omitempty"`      // once: absolute instant
	TimeOfDay string        `json:"time_of_day,omitempty"` // daily: "HH:MM" local time
	Interval  time.Duration `json:"interval,omitempty"`    // interval: period

	// NextFireAt is derived. It is recomputed after every fire and on
	// every mutation. It is zero iff the job is disabled.
	NextFireAt time.Time `json:"next_fire_at,omitempty"`
}

func (j *Job) validate() error {
	if len(j.Command) == 0 {
		return fmt.Errorf("%w: no command given", ErrInvalidJob)
	}

	switch j.Kind {
	case KindOnce:
		if j.RunAt.IsZero() {
			return fmt.Errorf("%w: a once job requires run_at", ErrInvalidJob)
		}
	case KindDaily:
		if _, _, err := parseTimeOfDay(j.TimeOfDay); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidJob, err)
		}
	case KindInterval:
		if j.Interval <= 0 {
			return fmt.Errorf("%w: an interval job requires a positive interval", ErrInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidJob, j.Kind)
	}

	return nil
}

// nextFire computes the next fire time relative to now. For a once job it
// is the configured instant, which may already be in the past; the job
// then fires on the next tick.
func (j *Job) nextFire(now time.Time) (time.Time, error) {
	switch j.Kind {
	case KindOnce:
		return j.RunAt, nil
	case KindDaily:
		hour, minute, err := parseTimeOfDay(j.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}

		return gronx.NextTickAfter(fmt.Sprintf("%d %d * * *", minute, hour), now, false)
	case KindInterval:
		return now.Add(j.Interval), nil
	}

	return time.Time{}, fmt.Errorf("unknown kind %q", j.Kind)
}

func parseTimeOfDay(value string) (hour int, minute int, err error) {
	if _, err := time.Parse("15:04", value); err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q, expected HH:MM", value)
	}

	fmt.Sscanf(value, "%d:%d", &hour, &minute)

	return hour, minute, nil
}
