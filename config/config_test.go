package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := New()

	require.Equal(t, version, c.Version)
	require.Equal(t, ":8080", c.Address)
	require.Equal(t, "stop", c.Server.GracefulCommand)
	require.Equal(t, 1000, c.Server.ConsoleCapacity)
	require.Equal(t, "stdin", c.Scheduler.Sink)
	require.True(t, c.Restart.Auto)
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("CORE_SERVER_COMMAND", "java -jar server.jar")
	t.Setenv("CORE_RESTART_AUTO", "false")
	t.Setenv("CORE_SERVER_CONSOLE_MAX_LINES", "250")

	c := New()
	errs := c.Merge()

	require.Empty(t, errs)
	require.Equal(t, "java -jar server.jar", c.Server.Command)
	require.False(t, c.Restart.Auto)
	require.Equal(t, 250, c.Server.ConsoleCapacity)
}

func TestMergeInvalidEnv(t *testing.T) {
	t.Setenv("CORE_SERVER_CONSOLE_MAX_LINES", "many")

	c := New()
	errs := c.Merge()

	require.Len(t, errs, 1)
	require.Equal(t, 1000, c.Server.ConsoleCapacity)
}

func TestValidate(t *testing.T) {
	c := New()
	c.Server.Command = "java -jar server.jar"

	require.Empty(t, c.Validate())

	c.Scheduler.Sink = "carrier-pigeon"
	require.NotEmpty(t, c.Validate())

	c.Scheduler.Sink = "rcon"
	require.NotEmpty(t, c.Validate())

	c.RCON.Enable = true
	require.Empty(t, c.Validate())

	c.API.Auth.Enable = true
	require.NotEmpty(t, c.Validate())

	c.API.Auth.Username = "admin"
	c.API.Auth.Password = "secret"
	c.API.Auth.JWT.Secret = "hmac-secret"
	require.Empty(t, c.Validate())
}

func TestServerCommand(t *testing.T) {
	c := New()
	c.Server.Command = "java -Xmx2G -jar server.jar nogui"

	require.Equal(t, []string{"java", "-Xmx2G", "-jar", "server.jar", "nogui"}, c.ServerCommand())
}

func TestJSONStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewJSONStore(path)
	require.NoError(t, err)

	c, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, version, c.Version)

	c.Server.Command = "java -jar server.jar"
	c.Name = "survival"

	require.NoError(t, store.Set(c))

	c2, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "survival", c2.Name)
	require.Equal(t, "java -jar server.jar", c2.Server.Command)
}

func TestJSONStoreGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{\"version\": oops}"), 0644))

	store, err := NewJSONStore(path)
	require.NoError(t, err)

	_, err = store.Get()
	require.Error(t, err)
}

func TestJSONStoreInvalidPath(t *testing.T) {
	_, err := NewJSONStore("")
	require.Error(t, err)
}

func TestJSONStoreRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewJSONStore(path)
	require.NoError(t, err)

	c := New()

	err = store.Set(c)
	require.Error(t, err)
}
