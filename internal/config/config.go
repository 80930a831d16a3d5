// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config loads the settings of the logicsim command.
//
// Settings come from, in increasing priority: built-in defaults, a YAML file,
// and LOGICSIM_* environment variables. A .env file in the working directory
// is loaded into the environment first.
package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/logicsim"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "logicsim.yaml"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all settings.
type Config struct {
	Simulation struct {
		MaxRounds      int `yaml:"max_rounds"`
		MaxInnerRounds int `yaml:"max_inner_rounds"`
	} `yaml:"simulation"`
	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		Set    string `yaml:"set"` // definition set used by the shell
	} `yaml:"store"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
}

// Default returns the default configuration.
func Default() *Config {
	var c Config
	c.Simulation.MaxRounds = logicsim.DefaultMaxRounds
	c.Simulation.MaxInnerRounds = logicsim.DefaultMaxInnerRounds
	c.Store.Driver = DriverSQLite
	c.Store.DSN = "logicsim.db"
	c.Store.Set = "default"
	c.Server.Addr = ":8080"
	c.Log.Level = "info"
	c.Log.Format = "text"
	return &c
}

// Load reads the configuration file at path. A missing file is not an error
// unless path was explicitly set (non empty); the defaults are used instead.
func Load(path string) (*Config, error) {
	// 1. .env, if any
	_ = godotenv.Load()

	// 2. YAML file
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case explicit || !os.IsNotExist(err):
		return nil, errors.Wrap(err, "load config")
	}

	// 3. environment overrides
	if err = cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		*dst = n
		return nil
	}
	if err := num("LOGICSIM_MAX_ROUNDS", &c.Simulation.MaxRounds); err != nil {
		return err
	}
	if err := num("LOGICSIM_MAX_INNER_ROUNDS", &c.Simulation.MaxInnerRounds); err != nil {
		return err
	}
	str("LOGICSIM_STORE_DRIVER", &c.Store.Driver)
	str("LOGICSIM_STORE_DSN", &c.Store.DSN)
	str("LOGICSIM_STORE_SET", &c.Store.Set)
	str("LOGICSIM_ADDR", &c.Server.Addr)
	str("LOGICSIM_LOG_LEVEL", &c.Log.Level)
	str("LOGICSIM_LOG_FORMAT", &c.Log.Format)
	return nil
}

// Validate checks setting values.
func (c *Config) Validate() error {
	if c.Simulation.MaxRounds < 1 || c.Simulation.MaxInnerRounds < 1 {
		return errors.Errorf("iteration caps must be positive, got %d and %d", c.Simulation.MaxRounds, c.Simulation.MaxInnerRounds)
	}
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver != DriverMemory && c.Store.DSN == "" {
		return errors.Errorf("store driver %s requires a dsn", c.Store.Driver)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, errors.Wrap(err, "log level")
	}
	return l, nil
}

// Logger returns a logger writing to w as configured.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, _ := c.level()
	opts := &slog.HandlerOptions{Level: l}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// CircuitOptions returns the simulation options.
func (c *Config) CircuitOptions(log *slog.Logger) []logicsim.Option {
	return []logicsim.Option{
		logicsim.WithLogger(log),
		logicsim.WithMaxRounds(c.Simulation.MaxRounds),
		logicsim.WithMaxInnerRounds(c.Simulation.MaxInnerRounds),
	}
}
