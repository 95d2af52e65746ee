package sched

import "sync"

// Store persists the flat list of job records. The scheduler loads it once
// on construction and saves it on every mutation and after every fire.
type Store interface {
	Load() ([]Job, error)
	Store(jobs []Job) error
}

type dummyStore struct {
	lock sync.Mutex
	jobs []Job
}

// NewDummyStore returns an in-memory store that doesn't persist anything
// across process restarts. Suited for tests.
func NewDummyStore() Store {
	return &dummyStore{}
}

func (s *dummyStore) Load() ([]Job, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)

	return jobs, nil
}

func (s *dummyStore) Store(jobs []Job) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.jobs = make([]Job, len(jobs))
	copy(s.jobs, jobs)

	return nil
}
