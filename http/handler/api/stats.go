package api

import (
	"net/http"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/monitor"

	"github.com/labstack/echo/v4"
)

// The StatsHandler type provides a handler for host resource usage
type StatsHandler struct {
	bridge  *bridge.Bridge
	monitor monitor.Monitor
}

// NewStats returns a new Stats type. You have to provide valid bridge and monitor instances.
func NewStats(bridge *bridge.Bridge, monitor monitor.Monitor) *StatsHandler {
	return &StatsHandler{
		bridge:  bridge,
		monitor: monitor,
	}
}

// Stats returns a resource usage snapshot of the host and the server process
func (h *StatsHandler) Stats(c echo.Context) error {
	pid := h.bridge.Status().PID

	stats := api.Stats{}
	stats.Unmarshal(h.monitor.Collect(pid))

	return c.JSON(http.StatusOK, stats)
}
