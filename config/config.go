// Package config implements types for handling the configuation for the app.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const version int64 = 1

// envPrefix is prepended to the variable names for environment overrides,
// e.g. the field "server.command" maps to CORE_SERVER_COMMAND.
const envPrefix = "CORE_"

// Config is the configuration data for the app. Durations are given in
// seconds in the file and the environment.
type Config struct {
	CreatedAt time.Time `json:"created_at"`
	LoadedAt  time.Time `json:"-"`

	Version int64  `json:"version"`
	Name    string `json:"name"`
	Address string `json:"address"`

	Log struct {
		Level string `json:"level"`
	} `json:"log"`

	DB struct {
		Dir string `json:"dir"`
	} `json:"db"`

	Server struct {
		Command         string `json:"command"`
		Dir             string `json:"dir"`
		GracefulCommand string `json:"graceful_command"`
		StopTimeout     int64  `json:"stop_timeout_seconds"`
		StartGrace      int64  `json:"start_grace_seconds"`
		ConsoleCapacity int    `json:"console_max_lines"`
	} `json:"server"`

	Restart struct {
		Auto        bool  `json:"auto"`
		Delay       int64 `json:"delay_seconds"`
		CrashLimit  int   `json:"crash_limit"`
		CrashWindow int64 `json:"crash_window_seconds"`
	} `json:"restart"`

	RCON struct {
		Enable   bool   `json:"enable"`
		Address  string `json:"address"`
		Password string `json:"password"`
		Timeout  int64  `json:"timeout_seconds"`
		Fallback bool   `json:"fallback"`
	} `json:"rcon"`

	Scheduler struct {
		Interval int64  `json:"interval_seconds"`
		Sink     string `json:"sink"`
	} `json:"scheduler"`

	API struct {
		Auth struct {
			Enable   bool   `json:"enable"`
			Username string `json:"username"`
			Password string `json:"password"`
			JWT      struct {
				Secret string `json:"secret"`
			} `json:"jwt"`
		} `json:"auth"`
	} `json:"api"`

	Webhook struct {
		URL string `json:"url"`
	} `json:"webhook"`
}

// New returns a config with all values at their defaults.
func New() *Config {
	c := &Config{}

	c.init()

	return c
}

func (c *Config) init() {
	c.CreatedAt = time.Now()
	c.Version = version
	c.Name = "craftwatch"
	c.Address = ":8080"

	c.Log.Level = "info"
	c.DB.Dir = "./config"

	c.Server.GracefulCommand = "stop"
	c.Server.StopTimeout = 30
	c.Server.StartGrace = 3
	c.Server.ConsoleCapacity = 1000

	c.Restart.Auto = true
	c.Restart.Delay = 5
	c.Restart.CrashLimit = 3
	c.Restart.CrashWindow = 300

	c.RCON.Address = "127.0.0.1:25575"
	c.RCON.Timeout = 3
	c.RCON.Fallback = true

	c.Scheduler.Interval = 5
	c.Scheduler.Sink = "stdin"
}

// Merge applies the environment overrides to the config. Unparsable
// values are reported, the field keeps its current value.
func (c *Config) Merge() []error {
	errs := []error{}

	merge := func(name string, set func(v string) error) {
		env, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			return
		}

		if err := set(env); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
		}
	}

	merge("NAME", stringValue(&c.Name))
	merge("ADDRESS", stringValue(&c.Address))
	merge("LOG_LEVEL", stringValue(&c.Log.Level))
	merge("DB_DIR", stringValue(&c.DB.Dir))

	merge("SERVER_COMMAND", stringValue(&c.Server.Command))
	merge("SERVER_DIR", stringValue(&c.Server.Dir))
	merge("SERVER_GRACEFUL_COMMAND", stringValue(&c.Server.GracefulCommand))
	merge("SERVER_STOP_TIMEOUT", int64Value(&c.Server.StopTimeout))
	merge("SERVER_START_GRACE", int64Value(&c.Server.StartGrace))
	merge("SERVER_CONSOLE_MAX_LINES", intValue(&c.Server.ConsoleCapacity))

	merge("RESTART_AUTO", boolValue(&c.Restart.Auto))
	merge("RESTART_DELAY", int64Value(&c.Restart.Delay))
	merge("RESTART_CRASH_LIMIT", intValue(&c.Restart.CrashLimit))
	merge("RESTART_CRASH_WINDOW", int64Value(&c.Restart.CrashWindow))

	merge("RCON_ENABLE", boolValue(&c.RCON.Enable))
	merge("RCON_ADDRESS", stringValue(&c.RCON.Address))
	merge("RCON_PASSWORD", stringValue(&c.RCON.Password))
	merge("RCON_TIMEOUT", int64Value(&c.RCON.Timeout))
	merge("RCON_FALLBACK", boolValue(&c.RCON.Fallback))

	merge("SCHEDULER_INTERVAL", int64Value(&c.Scheduler.Interval))
	merge("SCHEDULER_SINK", stringValue(&c.Scheduler.Sink))

	merge("API_AUTH_ENABLE", boolValue(&c.API.Auth.Enable))
	merge("API_AUTH_USERNAME", stringValue(&c.API.Auth.Username))
	merge("API_AUTH_PASSWORD", stringValue(&c.API.Auth.Password))
	merge("API_AUTH_JWT_SECRET", stringValue(&c.API.Auth.JWT.Secret))

	merge("WEBHOOK_URL", stringValue(&c.Webhook.URL))

	return errs
}

// Validate checks the config for impossible values and returns
// all violations.
func (c *Config) Validate() []error {
	errs := []error{}

	if c.Version != version {
		errs = append(errs, fmt.Errorf("unsupported config version %d", c.Version))
	}

	if len(c.Server.Command) == 0 {
		errs = append(errs, fmt.Errorf("server.command must not be empty"))
	}

	if c.Server.ConsoleCapacity <= 0 {
		errs = append(errs, fmt.Errorf("server.console_max_lines must be positive"))
	}

	if c.Server.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.stop_timeout_seconds must be positive"))
	}

	if c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval_seconds must be positive"))
	}

	switch c.Scheduler.Sink {
	case "stdin", "rcon":
	default:
		errs = append(errs, fmt.Errorf("scheduler.sink must be \"stdin\" or \"rcon\""))
	}

	if c.Scheduler.Sink == "rcon" && !c.RCON.Enable {
		errs = append(errs, fmt.Errorf("scheduler.sink \"rcon\" requires rcon.enable"))
	}

	if c.RCON.Enable && len(c.RCON.Address) == 0 {
		errs = append(errs, fmt.Errorf("rcon.address must not be empty"))
	}

	if c.API.Auth.Enable {
		if len(c.API.Auth.Username) == 0 || len(c.API.Auth.Password) == 0 {
			errs = append(errs, fmt.Errorf("api.auth requires username and password"))
		}

		if len(c.API.Auth.JWT.Secret) == 0 {
			errs = append(errs, fmt.Errorf("api.auth.jwt.secret must not be empty"))
		}
	}

	return errs
}

// ServerCommand splits the configured command line into its fields.
func (c *Config) ServerCommand() []string {
	return strings.Fields(c.Server.Command)
}

func stringValue(p *string) func(string) error {
	return func(v string) error {
		*p = v
		return nil
	}
}

func int64Value(p *int64) func(string) error {
	return func(v string) error {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}

		*p = i
		return nil
	}
}

func intValue(p *int) func(string) error {
	return func(v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		*p = i
		return nil
	}
}

func boolValue(p *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}

		*p = b
		return nil
	}
}
