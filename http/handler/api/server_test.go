package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/mock"
	"github.com/craftwatch/core/process"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func getDummyBridge(t *testing.T) *bridge.Bridge {
	b, err := bridge.New(bridge.Config{
		Process: process.Config{
			Command:     []string{"cat"},
			StartGrace:  200 * time.Millisecond,
			StopTimeout: time.Second,
		},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		b.Close()
	})

	return b
}

func getDummyServerRouter(t *testing.T) (*echo.Echo, *bridge.Bridge) {
	router := mock.DummyEcho()

	b := getDummyBridge(t)
	handler := NewServer(b)

	router.Add("GET", "/", handler.Status)
	router.Add("PUT", "/command", handler.Command)

	return router, b
}

func TestServerStatus(t *testing.T) {
	router, _ := getDummyServerRouter(t)

	response := mock.Request(t, http.StatusOK, router, "GET", "/", nil)

	mock.Validate(t, &api.ServerStatus{}, response.Data)

	data := response.Data.(map[string]interface{})
	require.Equal(t, "stopped", data["state"])
}

func TestServerCommandStart(t *testing.T) {
	router, b := getDummyServerRouter(t)

	mock.Request(t, http.StatusOK, router, "PUT", "/command", strings.NewReader(`{"command": "start"}`))

	require.Eventually(t, func() bool {
		return b.State() == process.StateRunning
	}, 5*time.Second, 50*time.Millisecond)

	mock.Request(t, http.StatusConflict, router, "PUT", "/command", strings.NewReader(`{"command": "start"}`))

	mock.Request(t, http.StatusOK, router, "PUT", "/command", strings.NewReader(`{"command": "stop"}`))

	require.Eventually(t, func() bool {
		return b.State() == process.StateStopped
	}, 5*time.Second, 50*time.Millisecond)
}

func TestServerCommandUnknown(t *testing.T) {
	router, _ := getDummyServerRouter(t)

	mock.Request(t, http.StatusBadRequest, router, "PUT", "/command", strings.NewReader(`{"command": "dance"}`))
}

func TestServerCommandInvalidJSON(t *testing.T) {
	router, _ := getDummyServerRouter(t)

	mock.Request(t, http.StatusBadRequest, router, "PUT", "/command", strings.NewReader(`{"command": `))
}
