package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/craftwatch/core/encoding/json"

	"github.com/google/renameio/v2"
)

// Store is a store for the config data.
type Store interface {
	// Get returns the current config, merged with the environment.
	Get() (*Config, error)

	// Set writes the given config to the store.
	Set(c *Config) error
}

type jsonStore struct {
	filepath string
}

// NewJSONStore returns a store that reads and writes the config at the
// given path. A missing file yields the defaults.
func NewJSONStore(filepath string) (Store, error) {
	if len(filepath) == 0 {
		return nil, fmt.Errorf("invalid file path, file path cannot be empty")
	}

	return &jsonStore{
		filepath: filepath,
	}, nil
}

func (s *jsonStore) Get() (*Config, error) {
	c := New()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else {
		if err := json.Unmarshal(data, c); err != nil {
			return nil, json.FormatError(data, err)
		}
	}

	c.LoadedAt = time.Now()

	if errs := c.Merge(); len(errs) != 0 {
		return nil, errs[0]
	}

	return c, nil
}

func (s *jsonStore) Set(c *Config) error {
	if errs := c.Validate(); len(errs) != 0 {
		return fmt.Errorf("invalid config: %w", errs[0])
	}

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}

	return renameio.WriteFile(s.filepath, data, 0644)
}

type dummyStore struct {
	config *Config
}

// NewDummyStore returns a store that keeps the config in memory.
func NewDummyStore() Store {
	return &dummyStore{
		config: New(),
	}
}

func (s *dummyStore) Get() (*Config, error) {
	c := *s.config

	return &c, nil
}

func (s *dummyStore) Set(c *Config) error {
	config := *c
	s.config = &config

	return nil
}
