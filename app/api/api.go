// Package api wires all components of one panel instance together.
package api

import (
	"context"
	"fmt"
	"io"
	gonet "net"
	gohttp "net/http"
	"path/filepath"
	"time"

	"github.com/craftwatch/core/app"
	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/config"
	"github.com/craftwatch/core/http"
	"github.com/craftwatch/core/http/jwt"
	"github.com/craftwatch/core/log"
	"github.com/craftwatch/core/monitor"
	"github.com/craftwatch/core/notify"
	"github.com/craftwatch/core/process"
	"github.com/craftwatch/core/rcon"

	schedstore "github.com/craftwatch/core/sched/store/json"
)

// The API interface is the main entry point for the application.
type API interface {
	// Start starts the HTTP server and blocks until Stop is called or the
	// server fails.
	Start() error

	// Stop shuts down the HTTP server and the background loops. The
	// supervised server process keeps running.
	Stop()

	// Destroy stops everything including the supervised server process.
	Destroy()
}

type api struct {
	config *config.Config
	logger log.Logger

	bridge   *bridge.Bridge
	monitor  monitor.Monitor
	notifier notify.Notifier

	server   *gohttp.Server
	shutdown chan struct{}
}

// New reads the config at configpath and assembles an app from it. Log
// output goes to logwriter.
func New(configpath string, logwriter io.Writer) (API, error) {
	a := &api{
		shutdown: make(chan struct{}),
	}

	store, err := config.NewJSONStore(configpath)
	if err != nil {
		return nil, err
	}

	cfg, err := store.Get()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a.config = cfg

	level := log.Linfo
	switch cfg.Log.Level {
	case "silent":
		level = log.Lsilent
	case "error":
		level = log.Lerror
	case "warn":
		level = log.Lwarn
	case "debug":
		level = log.Ldebug
	}

	a.logger = log.New("Core").WithOutput(log.NewConsoleWriter(logwriter, level, true))

	if errs := cfg.Validate(); len(errs) != 0 {
		for _, err := range errs {
			a.logger.Error().WithError(err).Log("Invalid config value")
		}

		return nil, fmt.Errorf("the config in %s can't be used", configpath)
	}

	a.notifier = notify.New(notify.Config{
		URL:    cfg.Webhook.URL,
		Logger: a.logger.WithComponent("Notify"),
	})

	jobstore, err := schedstore.New(schedstore.Config{
		Filepath: filepath.Join(cfg.DB.Dir, "schedules.json"),
		Logger:   a.logger.WithComponent("JobStore"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating job store: %w", err)
	}

	b, err := bridge.New(bridge.Config{
		Process: process.Config{
			Command:         cfg.ServerCommand(),
			Dir:             cfg.Server.Dir,
			GracefulCommand: cfg.Server.GracefulCommand,
			StopTimeout:     time.Duration(cfg.Server.StopTimeout) * time.Second,
			StartGrace:      time.Duration(cfg.Server.StartGrace) * time.Second,
			AutoRestart:     cfg.Restart.Auto,
			RestartDelay:    time.Duration(cfg.Restart.Delay) * time.Second,
			CrashLimit:      cfg.Restart.CrashLimit,
			CrashWindow:     time.Duration(cfg.Restart.CrashWindow) * time.Second,
		},
		ConsoleCapacity: cfg.Server.ConsoleCapacity,
		RCON: rcon.Config{
			Address:  cfg.RCON.Address,
			Password: cfg.RCON.Password,
			Timeout:  time.Duration(cfg.RCON.Timeout) * time.Second,
		},
		RCONEnable:        cfg.RCON.Enable,
		RCONFallback:      cfg.RCON.Fallback,
		JobSink:           cfg.Scheduler.Sink,
		SchedulerInterval: time.Duration(cfg.Scheduler.Interval) * time.Second,
		SchedulerStore:    jobstore,
		Notifier:          a.notifier,
		Logger:            a.logger.WithComponent("Bridge"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	a.bridge = b

	a.monitor = monitor.New(monitor.Config{
		DiskPath: cfg.Server.Dir,
	})

	var tokens jwt.JWT

	if cfg.API.Auth.Enable {
		tokens, err = jwt.New(jwt.Config{
			Realm:    app.Name,
			Secret:   cfg.API.Auth.JWT.Secret,
			Username: cfg.API.Auth.Username,
			Password: cfg.API.Auth.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("creating JWT provider: %w", err)
		}
	}

	handler, err := http.NewServer(http.Config{
		Logger:  a.logger.WithComponent("HTTP"),
		Bridge:  a.bridge,
		Monitor: a.monitor,
		JWT:     tokens,
		Name:    cfg.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP server: %w", err)
	}

	a.server = &gohttp.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	return a, nil
}

func (a *api) Start() error {
	listener, err := gonet.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.server.Addr, err)
	}

	a.logger.Info().WithField("address", a.server.Addr).Log("Serving the API")

	err = a.server.Serve(listener)
	if err == gohttp.ErrServerClosed {
		return nil
	}

	return err
}

func (a *api) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.server.Shutdown(ctx)
	a.bridge.Close()
}

func (a *api) Destroy() {
	a.Stop()

	if a.bridge.State().IsActive() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.config.Server.StopTimeout+5)*time.Second)
		defer cancel()

		a.logger.Info().Log("Stopping the server process")

		if err := a.bridge.Stop(ctx); err != nil {
			a.logger.Warn().WithError(err).Log("Stopping the server process failed")
		}
	}
}
