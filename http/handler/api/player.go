package api

import (
	"net/http"
	"strconv"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/handler/util"

	"github.com/labstack/echo/v4"
)

// The PlayerHandler type provides handlers for the known players of the server
type PlayerHandler struct {
	bridge *bridge.Bridge
}

// NewPlayer returns a new Player type. You have to provide a valid bridge instance.
func NewPlayer(bridge *bridge.Bridge) *PlayerHandler {
	return &PlayerHandler{
		bridge: bridge,
	}
}

// Online returns the players that are currently online
func (h *PlayerHandler) Online(c echo.Context) error {
	players := h.bridge.Players(c.Request().Context())

	return c.JSON(http.StatusOK, api.UnmarshalPlayers(players))
}

// History returns the most recently seen players
func (h *PlayerHandler) History(c echo.Context) error {
	limit := 25

	if value := util.DefaultQuery(c, "limit", ""); len(value) != 0 {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	players := h.bridge.RecentPlayers(limit)

	return c.JSON(http.StatusOK, api.UnmarshalPlayers(players))
}
