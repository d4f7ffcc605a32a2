// Package config loads engine and factory settings from an optional YAML
// file and MATERIA__ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/reoring/materia"
)

// EnvPrefix prefixes environment overrides; "__" separates key segments
// (MATERIA__FACTORY__MAX_DEPTH sets factory.max_depth).
const EnvPrefix = "MATERIA__"

type LogCfg struct {
	Level string `koanf:"level"` // debug|info|warn|error
	JSON  bool   `koanf:"json"`
}

type DateCfg struct {
	DisplayLayout string   `koanf:"display_layout"`
	Timezone      string   `koanf:"timezone"`
	Layouts       []string `koanf:"layouts"` // tried after RFC3339
}

type FactoryCfg struct {
	MaxDepth      int   `koanf:"max_depth"`
	CollectionMin int   `koanf:"collection_min"`
	CollectionMax int   `koanf:"collection_max"`
	Seed          int64 `koanf:"seed"` // 0 seeds from the clock
}

type Config struct {
	Log     LogCfg     `koanf:"log"`
	Date    DateCfg    `koanf:"date"`
	Unknown string     `koanf:"unknown"` // strip|strict|passthrough
	Factory FactoryCfg `koanf:"factory"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	var c Config
	applyDefaults(&c)
	return c
}

// Load merges YAML at path (skipped when path is empty or missing) with
// environment variables, then applies defaults and validates.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Date.DisplayLayout == "" {
		c.Date.DisplayLayout = "02/01/2006 15:04:05"
	}
	if c.Date.Timezone == "" {
		c.Date.Timezone = "UTC"
	}
	if c.Unknown == "" {
		c.Unknown = "strip"
	}
	if c.Factory.MaxDepth == 0 {
		c.Factory.MaxDepth = 3
	}
	if c.Factory.CollectionMin == 0 {
		c.Factory.CollectionMin = 1
	}
	if c.Factory.CollectionMax == 0 {
		c.Factory.CollectionMax = 3
	}
}

// Validate rejects values no component can honor.
func (c Config) Validate() error {
	if _, err := materia.ParseUnknownPolicy(c.Unknown); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Date.Timezone); err != nil {
		return fmt.Errorf("config: date.timezone: %w", err)
	}
	if c.Factory.MaxDepth < 0 {
		return fmt.Errorf("config: factory.max_depth must be >= 0, got %d", c.Factory.MaxDepth)
	}
	if c.Factory.CollectionMin < 0 || c.Factory.CollectionMax < c.Factory.CollectionMin {
		return fmt.Errorf("config: factory collection bounds [%d,%d] are invalid",
			c.Factory.CollectionMin, c.Factory.CollectionMax)
	}
	return nil
}

// UnknownPolicy returns the parsed unknown-key policy.
func (c Config) UnknownPolicy() materia.UnknownPolicy {
	p, _ := materia.ParseUnknownPolicy(c.Unknown)
	return p
}

// Location returns the configured date timezone, UTC when invalid.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Date.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Logger builds a stderr logger at the configured level. logr verbosity 1
// maps to debug and 2 to trace.
func (c Config) Logger() logr.Logger {
	var zl zerolog.Logger
	if c.Log.JSON {
		zl = zerolog.New(os.Stderr)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	zl = zl.Level(parseLevel(c.Log.Level)).With().Timestamp().Logger()
	return zerologr.New(&zl)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
