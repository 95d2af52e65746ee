package api

import (
	"errors"
	"net/http"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/handler/util"
	"github.com/craftwatch/core/process"

	"github.com/labstack/echo/v4"
)

// The ConsoleHandler type provides handlers for reading and writing the server console
type ConsoleHandler struct {
	bridge *bridge.Bridge
}

// NewConsole returns a new Console type. You have to provide a valid bridge instance.
func NewConsole(bridge *bridge.Bridge) *ConsoleHandler {
	return &ConsoleHandler{
		bridge: bridge,
	}
}

// Events returns all console lines after the cursor given with the last_id
// query parameter. Clients resume polling with the returned last_id.
func (h *ConsoleHandler) Events(c echo.Context) error {
	lastID := util.DefaultUintQuery(c, "last_id", 0)

	entries, newLastID := h.bridge.ReadConsole(lastID)

	events := api.ConsoleEvents{}
	events.Unmarshal(entries, newLastID, h.bridge.ConsoleGeneration())

	return c.JSON(http.StatusOK, events)
}

// Command writes a command line to the stdin of the server process
func (h *ConsoleHandler) Command(c echo.Context) error {
	var command api.Command

	if err := util.ShouldBindJSON(c, &command); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid JSON: %s", err.Error())
	}

	if len(command.Command) == 0 {
		return api.Err(http.StatusBadRequest, "", "the command must not be empty")
	}

	if err := h.bridge.Command(command.Command); err != nil {
		if errors.Is(err, process.ErrNotRunning) {
			return api.Err(http.StatusConflict, "", "the server is not running")
		}

		return api.Err(http.StatusInternalServerError, "", "%s", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
