// Package sched maintains a set of time-triggered jobs and dispatches
// their commands when they come due. A single ticking loop evaluates all
// enabled jobs against the wall clock.
package sched

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/craftwatch/core/log"

	"github.com/lithammer/shortuuid/v4"
)

// Config is the configuration of a scheduler.
type Config struct {
	// Interval is the tick period. Defaults to 5 seconds.
	Interval time.Duration

	// Store persists the job set. Defaults to an in-memory dummy.
	Store Store

	// Dispatch delivers a due job's command, exactly like a manually
	// entered console command. An error means the fire attempt is
	// skipped; the next occurrence is computed regardless.
	Dispatch func(command string) error

	Logger log.Logger
}

// Scheduler owns the job set. Jobs survive a restart of the panel process
// through the configured store.
type Scheduler struct {
	interval time.Duration
	store    Store
	dispatch func(command string) error
	logger   log.Logger

	lock sync.Mutex
	jobs map[string]*Job

	// now is the clock, replaceable in tests.
	now func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler and loads the persisted job set from the store.
func New(config Config) (*Scheduler, error) {
	s := &Scheduler{
		interval: config.Interval,
		store:    config.Store,
		dispatch: config.Dispatch,
		logger:   config.Logger,
		jobs:     map[string]*Job{},
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if s.interval <= 0 {
		s.interval = 5 * time.Second
	}

	if s.store == nil {
		s.store = NewDummyStore()
	}

	if s.dispatch == nil {
		s.dispatch = func(string) error { return nil }
	}

	if s.logger == nil {
		s.logger = log.New("Scheduler")
	}

	jobs, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}

	now := s.now()

	for i := range jobs {
		job := jobs[i]

		if job.Enabled && job.NextFireAt.IsZero() {
			if next, err := job.nextFire(now); err == nil {
				job.NextFireAt = next
			}
		}

		s.jobs[job.ID] = &job
	}

	return s, nil
}

// Start launches the ticking loop.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.tick(s.now())
			}
		}
	}()
}

// Stop terminates the ticking loop. In-flight dispatches finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// tick fires all due jobs and recomputes their next occurrence.
func (s *Scheduler) tick(now time.Time) {
	due := []Job{}

	s.lock.Lock()
	for _, job := range s.jobs {
		if !job.Enabled || job.NextFireAt.IsZero() {
			continue
		}

		if job.NextFireAt.After(now) {
			continue
		}

		due = append(due, *job)
	}
	s.lock.Unlock()

	if len(due) == 0 {
		return
	}

	sort.Slice(due, func(i, j int) bool { return due[i].NextFireAt.Before(due[j].NextFireAt) })

	for _, job := range due {
		s.fire(job, now)
	}

	s.save()
}

// fire dispatches one job and advances its schedule. A failed dispatch is
// a soft skip: it is logged, not retried mid-cycle, and the next
// occurrence is computed as if it had fired.
func (s *Scheduler) fire(job Job, now time.Time) {
	logger := s.logger.WithFields(log.Fields{
		"id":      job.ID,
		"kind":    job.Kind,
		"command": job.Command,
	})

	if err := s.dispatch(job.Command); err != nil {
		logger.Warn().WithError(err).Log("Dispatch skipped")
	} else {
		logger.Info().Log("Dispatched")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	current, ok := s.jobs[job.ID]
	if !ok {
		return
	}

	if job.Kind == KindOnce {
		current.Enabled = false
		current.NextFireAt = time.Time{}
		return
	}

	next, err := current.nextFire(now)
	if err != nil {
		logger.WithError(err).Error().Log("Disabling job, can't compute next fire time")

		current.Enabled = false
		current.NextFireAt = time.Time{}
		return
	}

	current.NextFireAt = next
}

// List returns all jobs ordered by id.
func (s *Scheduler) List() []Job {
	s.lock.Lock()
	defer s.lock.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	return jobs
}

// Get returns the job with the given id.
func (s *Scheduler) Get(id string) (Job, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}

	return *job, nil
}

// Add validates and stores a new job. A missing id is generated.
func (s *Scheduler) Add(job Job) (Job, error) {
	if len(job.ID) == 0 {
		job.ID = shortuuid.New()
	}

	if err := job.validate(); err != nil {
		return Job{}, err
	}

	s.lock.Lock()

	if _, ok := s.jobs[job.ID]; ok {
		s.lock.Unlock()
		return Job{}, fmt.Errorf("%w: duplicate id %q", ErrInvalidJob, job.ID)
	}

	s.reschedule(&job)
	s.jobs[job.ID] = &job

	s.lock.Unlock()

	s.save()

	return job, nil
}

// Update replaces the job with the given id.
func (s *Scheduler) Update(id string, job Job) (Job, error) {
	job.ID = id

	if err := job.validate(); err != nil {
		return Job{}, err
	}

	s.lock.Lock()

	if _, ok := s.jobs[id]; !ok {
		s.lock.Unlock()
		return Job{}, ErrUnknownJob
	}

	s.reschedule(&job)
	s.jobs[id] = &job

	s.lock.Unlock()

	s.save()

	return job, nil
}

// Delete removes the job with the given id.
func (s *Scheduler) Delete(id string) error {
	s.lock.Lock()

	if _, ok := s.jobs[id]; !ok {
		s.lock.Unlock()
		return ErrUnknownJob
	}

	delete(s.jobs, id)

	s.lock.Unlock()

	s.save()

	return nil
}

// Enable enables or disables a job. Enabling recomputes the next fire
// time, disabling clears it.
func (s *Scheduler) Enable(id string, enable bool) (Job, error) {
	s.lock.Lock()

	job, ok := s.jobs[id]
	if !ok {
		s.lock.Unlock()
		return Job{}, ErrUnknownJob
	}

	job.Enabled = enable
	s.reschedule(job)

	updated := *job

	s.lock.Unlock()

	s.save()

	return updated, nil
}

// reschedule recomputes NextFireAt according to the enabled flag. The
// caller holds the lock.
func (s *Scheduler) reschedule(job *Job) {
	if !job.Enabled {
		job.NextFireAt = time.Time{}
		return
	}

	next, err := job.nextFire(s.now())
	if err != nil {
		job.Enabled = false
		job.NextFireAt = time.Time{}
		return
	}

	job.NextFireAt = next
}

// save writes the current job set through the store.
func (s *Scheduler) save() {
	s.lock.Lock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}

	s.lock.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	if err := s.store.Store(jobs); err != nil {
		s.logger.WithError(err).Error().Log("Storing jobs failed")
	}
}
