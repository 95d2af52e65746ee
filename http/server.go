// Package http implements the REST API of the control panel.
package http

import (
	"net/http"
	"strings"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/errorhandler"
	api "github.com/craftwatch/core/http/handler/api"
	"github.com/craftwatch/core/http/jwt"
	"github.com/craftwatch/core/log"
	"github.com/craftwatch/core/monitor"

	mwlog "github.com/craftwatch/core/http/middleware/log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Config struct {
	Logger  log.Logger
	Bridge  *bridge.Bridge
	Monitor monitor.Monitor
	JWT     jwt.JWT
	Name    string
}

type Server interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

type server struct {
	logger log.Logger

	handler struct {
		about    *api.AboutHandler
		server   *api.ServerHandler
		console  *api.ConsoleHandler
		rcon     *api.RconHandler
		player   *api.PlayerHandler
		schedule *api.ScheduleHandler
		stats    *api.StatsHandler
		jwt      jwt.JWT
	}

	middleware struct {
		log        echo.MiddlewareFunc
		accessJWT  echo.MiddlewareFunc
		refreshJWT echo.MiddlewareFunc
	}

	router *echo.Echo
}

func NewServer(config Config) (Server, error) {
	s := &server{
		logger: config.Logger,
	}

	if s.logger == nil {
		s.logger = log.New("HTTP")
	}

	s.handler.about = api.NewAbout(config.Bridge, config.Name, config.JWT != nil)
	s.handler.server = api.NewServer(config.Bridge)
	s.handler.console = api.NewConsole(config.Bridge)
	s.handler.rcon = api.NewRcon(config.Bridge)
	s.handler.player = api.NewPlayer(config.Bridge)
	s.handler.schedule = api.NewSchedule(config.Bridge)

	if config.Monitor != nil {
		s.handler.stats = api.NewStats(config.Bridge, config.Monitor)
	}

	if config.JWT != nil {
		s.handler.jwt = config.JWT
		s.middleware.accessJWT = config.JWT.AccessMiddleware()
		s.middleware.refreshJWT = config.JWT.RefreshMiddleware()
	}

	s.middleware.log = mwlog.NewWithConfig(mwlog.Config{
		Logger: s.logger,
	})

	s.router = echo.New()
	s.router.HTTPErrorHandler = errorhandler.HTTPErrorHandler
	s.router.HideBanner = true
	s.router.HidePort = true

	s.router.Use(s.middleware.log)
	s.router.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			rows := strings.Split(string(stack), "\n")
			s.logger.Error().WithField("stack", rows).Log("recovered from a panic")
			return nil
		},
	}))

	s.setRoutes()

	return s, nil
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *server) setRoutes() {
	s.router.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	s.router.GET("/api", s.handler.about.About)

	// API router group
	api := s.router.Group("/api")

	if s.middleware.accessJWT != nil {
		api.Use(s.middleware.accessJWT)

		// The login endpoints should not be blocked by auth
		s.router.POST("/api/login", s.handler.jwt.LoginHandler)
		s.router.GET("/api/login/refresh", s.handler.jwt.RefreshHandler, s.middleware.refreshJWT)
	}

	v3 := api.Group("/v3")

	v3.GET("/server", s.handler.server.Status)
	v3.PUT("/server/command", s.handler.server.Command)

	v3.GET("/server/console", s.handler.console.Events)
	v3.POST("/server/console", s.handler.console.Command)

	v3.POST("/server/rcon", s.handler.rcon.Command)

	v3.GET("/server/players", s.handler.player.Online)
	v3.GET("/server/players/history", s.handler.player.History)

	v3.GET("/schedules", s.handler.schedule.GetAll)
	v3.POST("/schedules", s.handler.schedule.Add)
	v3.GET("/schedules/:id", s.handler.schedule.Get)
	v3.PUT("/schedules/:id", s.handler.schedule.Update)
	v3.DELETE("/schedules/:id", s.handler.schedule.Delete)
	v3.PUT("/schedules/:id/enable", s.handler.schedule.Enable)

	if s.handler.stats != nil {
		v3.GET("/stats", s.handler.stats.Stats)
	}
}
