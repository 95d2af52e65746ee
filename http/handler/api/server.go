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

// The ServerHandler type provides handlers for the server process lifecycle
type ServerHandler struct {
	bridge *bridge.Bridge
}

// NewServer returns a new Server type. You have to provide a valid bridge instance.
func NewServer(bridge *bridge.Bridge) *ServerHandler {
	return &ServerHandler{
		bridge: bridge,
	}
}

// Status returns the current status of the server process
func (h *ServerHandler) Status(c echo.Context) error {
	status := api.ServerStatus{}
	status.Unmarshal(h.bridge.Status())

	return c.JSON(http.StatusOK, status)
}

// Command issues a lifecycle command, one of "start", "stop" or "restart"
func (h *ServerHandler) Command(c echo.Context) error {
	var command api.Command

	if err := util.ShouldBindJSON(c, &command); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid JSON: %s", err.Error())
	}

	var err error

	switch command.Command {
	case "start":
		err = h.bridge.Start()
	case "stop":
		err = h.bridge.Stop(c.Request().Context())
	case "restart":
		err = h.bridge.Restart(c.Request().Context())
	default:
		return api.Err(http.StatusBadRequest, "", "unknown command, known commands are: start, stop, restart")
	}

	if err != nil {
		if errors.Is(err, process.ErrAlreadyRunning) {
			return api.Err(http.StatusConflict, "", "the server is already running")
		}

		return api.Err(http.StatusInternalServerError, "", "%s", err.Error())
	}

	return h.Status(c)
}
