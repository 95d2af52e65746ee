// Package jwt implements the token-based authentication of the API.
package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/handler/util"

	jwtgo "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// The Config type holds information that is required to create a new JWT provider
type Config struct {
	Realm    string
	Secret   string
	Username string
	Password string
}

// JWT provides access to a JWT provider
type JWT interface {
	// AccessMiddleware returns an echo middleware that requires a valid access token
	AccessMiddleware() echo.MiddlewareFunc

	// RefreshMiddleware returns an echo middleware that requires a valid refresh token
	RefreshMiddleware() echo.MiddlewareFunc

	// LoginHandler is an echo route handler for retrieving a JWT
	LoginHandler(c echo.Context) error

	// RefreshHandler is an echo route handler for refreshing a JWT
	RefreshHandler(c echo.Context) error
}

type jwt struct {
	realm           string
	secret          []byte
	username        string
	password        string
	accessValidFor  time.Duration
	refreshValidFor time.Duration

	accessMiddleware  echo.MiddlewareFunc
	refreshMiddleware echo.MiddlewareFunc
}

// New returns a new JWT provider
func New(config Config) (JWT, error) {
	j := &jwt{
		realm:           config.Realm,
		secret:          []byte(config.Secret),
		username:        config.Username,
		password:        config.Password,
		accessValidFor:  time.Minute * 10,
		refreshValidFor: time.Hour * 24,
	}

	if len(j.secret) == 0 {
		return nil, fmt.Errorf("the JWT secret must not be empty")
	}

	if len(j.username) == 0 || len(j.password) == 0 {
		return nil, fmt.Errorf("a username and a password are required")
	}

	return j, nil
}

func (j *jwt) middlewareConfig(usefor string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "user",
		TokenLookup:   "header:" + echo.HeaderAuthorization,
		AuthScheme:    "Bearer",
		Claims:        jwtgo.MapClaims{},
		ErrorHandlerWithContext: func(err error, c echo.Context) error {
			return api.Err(http.StatusUnauthorized, "Missing or invalid JWT token")
		},
		SuccessHandler: func(c echo.Context) {
			token := c.Get("user").(*jwtgo.Token)

			var subject string
			if claims, ok := token.Claims.(jwtgo.MapClaims); ok {
				if sub, ok := claims["sub"]; ok {
					subject = sub.(string)
				}
			}

			c.Set("user", subject)
		},
		ParseTokenFunc: func(auth string, c echo.Context) (interface{}, error) {
			return j.parseToken(auth, usefor)
		},
	}
}

func (j *jwt) parseToken(auth, usefor string) (interface{}, error) {
	keyFunc := func(*jwtgo.Token) (interface{}, error) { return j.secret, nil }

	token, err := jwtgo.Parse(auth, keyFunc)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwtgo.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	if _, ok := claims["sub"]; !ok {
		return nil, fmt.Errorf("sub claim is required")
	}

	if use, ok := claims["usefor"]; !ok || use != usefor {
		return nil, fmt.Errorf("token is not usable for %s", usefor)
	}

	return token, nil
}

func (j *jwt) AccessMiddleware() echo.MiddlewareFunc {
	if j.accessMiddleware == nil {
		j.accessMiddleware = middleware.JWTWithConfig(j.middlewareConfig("access"))
	}

	return j.accessMiddleware
}

func (j *jwt) RefreshMiddleware() echo.MiddlewareFunc {
	if j.refreshMiddleware == nil {
		j.refreshMiddleware = middleware.JWTWithConfig(j.middlewareConfig("refresh"))
	}

	return j.refreshMiddleware
}

// LoginHandler returns an access token and a refresh token
func (j *jwt) LoginHandler(c echo.Context) error {
	var login api.Login

	if err := util.ShouldBindJSON(c, &login); err != nil {
		return api.Err(http.StatusBadRequest, "Missing authorization credentials")
	}

	if login.Username != j.username || login.Password != j.password {
		time.Sleep(5 * time.Second)
		return api.Err(http.StatusUnauthorized, "Invalid authorization credentials")
	}

	at, rt, err := j.createToken(login.Username)
	if err != nil {
		return api.Err(http.StatusInternalServerError, "Failed to create JWT", "%s", err)
	}

	return c.JSON(http.StatusOK, api.JWT{
		AccessToken:  at,
		RefreshToken: rt,
	})
}

// RefreshHandler returns a new access token
func (j *jwt) RefreshHandler(c echo.Context) error {
	subject, ok := c.Get("user").(string)
	if !ok {
		return api.Err(http.StatusForbidden, "Invalid token")
	}

	at, _, err := j.createToken(subject)
	if err != nil {
		return api.Err(http.StatusInternalServerError, "Failed to create JWT", "%s", err)
	}

	return c.JSON(http.StatusOK, api.JWTRefresh{
		AccessToken: at,
	})
}

func (j *jwt) createToken(username string) (string, string, error) {
	now := time.Now()
	accessExpires := now.Add(j.accessValidFor)
	refreshExpires := now.Add(j.refreshValidFor)

	accessToken := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, jwtgo.MapClaims{
		"iss":    j.realm,
		"sub":    username,
		"usefor": "access",
		"iat":    now.Unix(),
		"exp":    accessExpires.Unix(),
		"jti":    uuid.New().String(),
	})

	at, err := accessToken.SignedString(j.secret)
	if err != nil {
		return "", "", err
	}

	refreshToken := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, jwtgo.MapClaims{
		"iss":    j.realm,
		"sub":    username,
		"usefor": "refresh",
		"iat":    now.Unix(),
		"exp":    refreshExpires.Unix(),
		"jti":    uuid.New().String(),
	})

	rt, err := refreshToken.SignedString(j.secret)
	if err != nil {
		return "", "", err
	}

	return at, rt, nil
}
