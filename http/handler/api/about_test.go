package api

import (
	"net/http"
	"testing"

	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/mock"

	"github.com/stretchr/testify/require"
)

func TestAbout(t *testing.T) {
	router := mock.DummyEcho()

	b := getDummyBridge(t)
	handler := NewAbout(b, "testserver", false)

	router.Add("GET", "/", handler.About)

	response := mock.Request(t, http.StatusOK, router, "GET", "/", nil)

	mock.Validate(t, &api.About{}, response.Data)

	data := response.Data.(map[string]interface{})
	require.Equal(t, "testserver", data["name"])
	require.Equal(t, "stopped", data["state"])
}
