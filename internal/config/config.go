// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package config loads and validates the process-wide configuration.
// Precedence, lowest to highest: built-in defaults, YAML file, command
// line flags, then the DATABASE_URL and STOCKROOM_SECRET environment
// variables. The resulting Config is immutable after startup.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/stockroom/stockroom/internal/auth"
)

// Defaults.
const (
	DefaultAddr        = ":8000"
	DefaultMetricsAddr = "127.0.0.1:9090"
	DefaultTokenTTL    = 30 * time.Minute
)

// Environment variables consulted for secrets.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvAuthSecret  = "STOCKROOM_SECRET"
)

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// ignored by the config loader.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "server.metrics_addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"database-url": "database.url",
	"token-ttl":    "auth.token_ttl",
}

// Config is the process-wide configuration, built once at startup and
// injected by value into the components that need it.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig configures the API and observability listeners.
type ServerConfig struct {
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures PostgreSQL connectivity.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig configures the authentication core: token signing and
// password hashing cost.
type AuthConfig struct {
	Secret    string        `koanf:"secret"`
	Algorithm string        `koanf:"algorithm"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Argon2    Argon2Config  `koanf:"argon2"`
}

// Argon2Config carries the argon2id cost parameters.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// Params converts the config section to hasher parameters.
func (a Argon2Config) Params() auth.Argon2Params {
	return auth.Argon2Params{
		Time:      a.Time,
		MemoryKiB: a.MemoryKiB,
		Threads:   a.Threads,
	}
}

// Default returns the built-in defaults. The signing secret and database
// URL have no default; they must come from configuration or environment.
func Default() Config {
	argon2 := auth.DefaultArgon2Params()
	return Config{
		Server: ServerConfig{
			Addr:        DefaultAddr,
			MetricsAddr: DefaultMetricsAddr,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Auth: AuthConfig{
			Algorithm: auth.DefaultTokenAlgorithm,
			TokenTTL:  DefaultTokenTTL,
			Argon2: Argon2Config{
				Time:      argon2.Time,
				MemoryKiB: argon2.MemoryKiB,
				Threads:   argon2.Threads,
			},
		},
	}
}

// Load builds the configuration from the optional YAML file at path, the
// given flag set (only flags the user actually changed are applied), and
// the environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv(EnvAuthSecret); v != "" {
		cfg.Auth.Secret = v
	}

	return cfg, nil
}

// Validate checks the configuration for the serve command. Any error is
// fatal at startup; nothing here is checked again per-request.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "server.addr").
			Errorf("server address is required")
	}
	if c.Server.MetricsAddr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "server.metrics_addr").
			Errorf("metrics address is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			With("value", c.Log.Format).
			Errorf("log format must be json or text")
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Auth.Secret == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.secret").
			Errorf("signing secret is required (auth.secret or %s)", EnvAuthSecret)
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.algorithm").
			With("value", c.Auth.Algorithm).
			Errorf("signing algorithm must be HS256, HS384 or HS512")
	}
	if c.Auth.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.token_ttl").
			With("value", c.Auth.TokenTTL.String()).
			Errorf("token ttl must be positive")
	}
	if c.Auth.Argon2.Time == 0 || c.Auth.Argon2.MemoryKiB == 0 || c.Auth.Argon2.Threads == 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.argon2").
			Errorf("argon2 parameters must be positive")
	}
	return nil
}

// ValidateDatabase checks only the database settings, for commands that
// touch the store without serving.
func (c Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database url is required (database.url or %s)", EnvDatabaseURL)
	}
	return nil
}
