package api

import (
	"errors"
	"net/http"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/handler/util"
	"github.com/craftwatch/core/rcon"

	"github.com/labstack/echo/v4"
)

// The RconHandler type provides a handler for sending RCON commands
type RconHandler struct {
	bridge *bridge.Bridge
}

// NewRcon returns a new Rcon type. You have to provide a valid bridge instance.
func NewRcon(bridge *bridge.Bridge) *RconHandler {
	return &RconHandler{
		bridge: bridge,
	}
}

// Command sends a command over the RCON connection and returns the reply
func (h *RconHandler) Command(c echo.Context) error {
	var command api.Command

	if err := util.ShouldBindJSON(c, &command); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid JSON: %s", err.Error())
	}

	if len(command.Command) == 0 {
		return api.Err(http.StatusBadRequest, "", "the command must not be empty")
	}

	response, err := h.bridge.RconCommand(c.Request().Context(), command.Command)
	if err != nil {
		if errors.Is(err, bridge.ErrRconUnavailable) {
			return api.Err(http.StatusServiceUnavailable, "", "RCON is not enabled")
		}

		if errors.Is(err, rcon.ErrAuthFailed) {
			return api.Err(http.StatusBadGateway, "", "RCON authentication failed, check the configured password")
		}

		if errors.Is(err, rcon.ErrTimeout) {
			return api.Err(http.StatusGatewayTimeout, "", "the server did not respond in time")
		}

		return api.Err(http.StatusBadGateway, "", "%s", err.Error())
	}

	return c.JSON(http.StatusOK, api.CommandResponse{
		Response: response,
	})
}
