package main

import (
	"github.com/urfave/cli/v2"

	"github.com/teslashibe/go-pointdex/internal/config"
	"github.com/teslashibe/go-pointdex/internal/log"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file",
		EnvVars: []string{"POINTDEX_CONFIG"},
	}

	apiFlag = &cli.StringFlag{
		Name:  "api",
		Usage: "Classifier base URL or predict endpoint",
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
)

func commonFlags() []cli.Flag {
	return []cli.Flag{configFlag, apiFlag, logLevelFlag}
}

// loadConfig reads the config file and applies flag overrides on top of
// file and environment values.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}

	if v := c.String(apiFlag.Name); v != "" {
		cfg.Classifier.URL = config.NormalizeEndpoint(v)
	}
	if v := c.String(logLevelFlag.Name); v != "" {
		cfg.Log.Level = v
	}
	if c.IsSet("listen") {
		cfg.Web.Listen = c.String("listen")
	}
	if c.IsSet("device") {
		cfg.Camera.Device = c.String("device")
	}
	if c.Bool("no-web") {
		cfg.Web.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
