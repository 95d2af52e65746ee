// Package json provides a JSON file backed store for the scheduler's job
// set.
package json

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/craftwatch/core/encoding/json"
	"github.com/craftwatch/core/log"
	"github.com/craftwatch/core/sched"

	"github.com/google/renameio/v2"
)

const version = 1

type Config struct {
	Filepath string // Full path to the database file
	Logger   log.Logger
}

type jsonStore struct {
	filepath string
	logger   log.Logger

	// Mutex to serialize access to the disk
	lock sync.Mutex
}

type data struct {
	Version uint64      `json:"version"`
	Jobs    []sched.Job `json:"jobs"`
}

func New(config Config) (sched.Store, error) {
	s := &jsonStore{
		filepath: config.Filepath,
		logger:   config.Logger,
	}

	if len(s.filepath) == 0 {
		return nil, fmt.Errorf("no valid file path provided")
	}

	if s.logger == nil {
		s.logger = log.New("")
	}

	return s, nil
}

func (s *jsonStore) Load() ([]sched.Job, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	jsondata, err := os.ReadFile(s.filepath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []sched.Job{}, nil
		}

		return nil, err
	}

	d := data{}

	if err := json.Unmarshal(jsondata, &d); err != nil {
		return nil, json.FormatError(jsondata, err)
	}

	if d.Version != version {
		return nil, fmt.Errorf("unsupported version of the DB file (want: %d, have: %d)", version, d.Version)
	}

	s.logger.WithField("file", s.filepath).Debug().Log("Read jobs")

	if d.Jobs == nil {
		d.Jobs = []sched.Job{}
	}

	return d.Jobs, nil
}

func (s *jsonStore) Store(jobs []sched.Job) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	jsondata, err := json.MarshalIndent(&data{
		Version: version,
		Jobs:    jobs,
	}, "", "    ")
	if err != nil {
		return err
	}

	// Written via a temporary file and rename so a crash mid-write
	// can't truncate the job set.
	if err := renameio.WriteFile(s.filepath, jsondata, 0644); err != nil {
		return fmt.Errorf("failed to store jobs: %w", err)
	}

	s.logger.WithField("file", s.filepath).Debug().Log("Stored jobs")

	return nil
}
