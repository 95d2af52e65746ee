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

func getDummyConsoleRouter(t *testing.T) (*echo.Echo, *bridge.Bridge) {
	router := mock.DummyEcho()

	b := getDummyBridge(t)
	handler := NewConsole(b)

	router.Add("GET", "/", handler.Events)
	router.Add("POST", "/", handler.Command)

	return router, b
}

func TestConsoleEventsEmpty(t *testing.T) {
	router, _ := getDummyConsoleRouter(t)

	response := mock.Request(t, http.StatusOK, router, "GET", "/", nil)

	mock.Validate(t, &api.ConsoleEvents{}, response.Data)
}

func TestConsoleCommandNotRunning(t *testing.T) {
	router, _ := getDummyConsoleRouter(t)

	mock.Request(t, http.StatusConflict, router, "POST", "/", strings.NewReader(`{"command": "say hello"}`))
}

func TestConsoleCommandEmpty(t *testing.T) {
	router, _ := getDummyConsoleRouter(t)

	mock.Request(t, http.StatusBadRequest, router, "POST", "/", strings.NewReader(`{"command": ""}`))
}

func TestConsoleRoundtrip(t *testing.T) {
	router, b := getDummyConsoleRouter(t)

	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		return b.State() == process.StateRunning
	}, 5*time.Second, 50*time.Millisecond)

	mock.Request(t, http.StatusNoContent, router, "POST", "/", strings.NewReader(`{"command": "say hello"}`))

	require.Eventually(t, func() bool {
		response := mock.Request(t, http.StatusOK, router, "GET", "/?last_id=0", nil)
		data := response.Data.(map[string]interface{})
		entries := data["entries"].([]interface{})
		return len(entries) >= 2
	}, 5*time.Second, 50*time.Millisecond)
}
