package api

import (
	"net/http"

	"github.com/craftwatch/core/app"
	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"

	"github.com/labstack/echo/v4"
)

// The AboutHandler type provides a handler for general information about the instance
type AboutHandler struct {
	bridge *bridge.Bridge
	name   string
	auth   bool
}

// NewAbout returns a new About type. You have to provide a valid bridge instance.
func NewAbout(bridge *bridge.Bridge, name string, auth bool) *AboutHandler {
	return &AboutHandler{
		bridge: bridge,
		name:   name,
		auth:   auth,
	}
}

// About returns the name, version and server state of the instance
func (h *AboutHandler) About(c echo.Context) error {
	return c.JSON(http.StatusOK, api.About{
		App:     app.Name,
		Name:    h.name,
		Version: app.Version.String(),
		State:   h.bridge.State().String(),
		Auths:   h.auth,
	})
}
