package monitor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectHost(t *testing.T) {
	m := New(Config{})

	stats := m.Collect(0)

	require.NotZero(t, stats.MemTotal)
	require.NotZero(t, stats.DiskTotal)
	require.Nil(t, stats.Process)
}

func TestCollectProcess(t *testing.T) {
	m := New(Config{})

	stats := m.Collect(int32(os.Getpid()))

	require.NotNil(t, stats.Process)
	require.Equal(t, int32(os.Getpid()), stats.Process.PID)
	require.NotZero(t, stats.Process.MemRSS)
}

func TestCollectUnknownProcess(t *testing.T) {
	m := New(Config{})

	stats := m.Collect(1<<31 - 1)

	require.Nil(t, stats.Process)
}
