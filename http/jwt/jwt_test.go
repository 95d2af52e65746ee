package jwt

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/craftwatch/core/encoding/json"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/errorhandler"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func getDummyAuthRouter(t *testing.T) *echo.Echo {
	j, err := New(Config{
		Realm:    "test",
		Secret:   "hmac-secret",
		Username: "admin",
		Password: "secret",
	})
	require.NoError(t, err)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = errorhandler.HTTPErrorHandler

	router.POST("/login", j.LoginHandler)
	router.GET("/refresh", j.RefreshHandler, j.RefreshMiddleware())
	router.GET("/protected", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, j.AccessMiddleware())

	return router
}

func request(router *echo.Echo, method, path, token string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if len(body) != 0 {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, _ := http.NewRequest(method, path, reader)
	if len(body) != 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(token) != 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{
		Username: "admin",
		Password: "secret",
	})
	require.Error(t, err)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{
		Secret: "hmac-secret",
	})
	require.Error(t, err)
}

func TestLoginAndAccess(t *testing.T) {
	router := getDummyAuthRouter(t)

	w := request(router, "POST", "/login", "", `{"username": "admin", "password": "secret"}`)
	require.Equal(t, http.StatusOK, w.Code)

	tokens := api.JWT{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	w = request(router, "GET", "/protected", tokens.AccessToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	// A refresh token must not grant API access
	w = request(router, "GET", "/protected", tokens.RefreshToken, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(router, "GET", "/refresh", tokens.RefreshToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	refreshed := api.JWTRefresh{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	require.NotEmpty(t, refreshed.AccessToken)

	w = request(router, "GET", "/protected", refreshed.AccessToken, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAccessWithoutToken(t *testing.T) {
	router := getDummyAuthRouter(t)

	w := request(router, "GET", "/protected", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(router, "GET", "/protected", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
