package json

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/craftwatch/core/sched"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Filepath: filepath.Join(t.TempDir(), "jobs.json")})
	require.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	store, err := New(Config{Filepath: filepath.Join(t.TempDir(), "jobs.json")})
	require.NoError(t, err)

	jobs, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestStoreLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	store, err := New(Config{Filepath: path})
	require.NoError(t, err)

	jobs := []sched.Job{
		{
			ID:       "a",
			Kind:     sched.KindInterval,
			Command:  "save-all",
			Enabled:  true,
			Interval: time.Hour,
		},
		{
			ID:        "b",
			Kind:      sched.KindDaily,
			Command:   "backup",
			Enabled:   true,
			TimeOfDay: "03:30",
		},
	}

	require.NoError(t, store.Store(jobs))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, jobs, loaded)
}

func TestLoadInvalidVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "jobs": []}`), 0644))

	store, err := New(Config{Filepath: path})
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
}

func TestLoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"version": `), 0644))

	store, err := New(Config{Filepath: path})
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
}
