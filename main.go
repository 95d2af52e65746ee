package main

import (
	"os"
	"os/signal"
	"path"

	"github.com/craftwatch/core/app/api"
	"github.com/craftwatch/core/log"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := log.New("Core").WithOutput(log.NewConsoleWriter(os.Stderr, log.Lwarn, true))

	configfile := findConfigfile()

	a, err := api.New(configfile, os.Stderr)
	if err != nil {
		logger.Error().WithError(err).Log("Failed to create the app")
		os.Exit(1)
	}

	go func() {
		defer func() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				proc.Signal(os.Interrupt)
			}
		}()

		if err := a.Start(); err != nil {
			logger.Error().WithError(err).Log("Failed to start the app")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the app
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	a.Destroy()
}

// findConfigfile returns the path to the config file. If no path is given
// in the environment variable CORE_CONFIGFILE, different standard locations
// will be probed:
// - os.UserConfigDir() + /craftwatch/config.json
// - os.UserHomeDir() + /.config/craftwatch/config.json
// - ./config/config.json
// If the config doesn't exist in any of these locations, it is assumed
// at ./config/config.json
func findConfigfile() string {
	configfile := os.Getenv("CORE_CONFIGFILE")
	if len(configfile) != 0 {
		return configfile
	}

	locations := []string{}

	if dir, err := os.UserConfigDir(); err == nil {
		locations = append(locations, dir+"/craftwatch/config.json")
	}

	if dir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, dir+"/.config/craftwatch/config.json")
	}

	locations = append(locations, "./config/config.json")

	for _, path := range locations {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if info.IsDir() {
			continue
		}

		configfile = path
	}

	if len(configfile) == 0 {
		configfile = "./config/config.json"
	}

	os.MkdirAll(path.Dir(configfile), 0740)

	return configfile
}
