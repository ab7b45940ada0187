// Package config loads the tabstate configuration file.
//
// A missing file yields Default. Values present in the file replace the defaults
// field by field; command line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
	"github.com/aretw0/tabstate/pkg/adapters/redis"
	"github.com/aretw0/tabstate/pkg/debug"
	"github.com/aretw0/tabstate/pkg/middleware"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file read when no --config flag is given.
const DefaultPath = "tabstate.yaml"

// DefaultHTTPAddr is the introspection API address.
const DefaultHTTPAddr = ":8080"

// Config is the root of tabstate.yaml.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Debug    DebugConfig  `yaml:"debug"`
	HTTP     HTTPConfig   `yaml:"http"`
	Redis    RedisConfig  `yaml:"redis"`
	Store    StoreConfig  `yaml:"store"`
	Engine   EngineConfig `yaml:"engine"`
}

// DebugConfig controls the TCP debug sink.
type DebugConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	ClientBuffer int    `yaml:"client_buffer"`
}

// HTTPConfig controls the introspection API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig enables the redis publisher and window locks when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Channel    string `yaml:"channel"`
	LockPrefix string `yaml:"lock_prefix"`
}

// Enabled reports whether a redis server is configured.
func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

// StoreConfig tunes every store the process creates.
type StoreConfig struct {
	RedeliverOnResume bool `yaml:"redeliver_on_resume"`
	ConflictCheck     bool `yaml:"conflict_check"`
}

// EngineConfig tunes the engine middleware.
type EngineConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel: "info",
		Debug: DebugConfig{
			Addr:         debug.DefaultAddr,
			ClientBuffer: debug.DefaultClientBuffer,
		},
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
		Redis: RedisConfig{
			Channel:    redis.DefaultChannel,
			LockPrefix: redis.DefaultLockPrefix,
		},
		Engine: EngineConfig{Timeout: middleware.DefaultEngineTimeout},
	}
}

// Load reads path. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document over the defaults and validates it.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Debug.ClientBuffer <= 0 {
		errs = append(errs, fmt.Errorf("debug.client_buffer must be positive, got %d", c.Debug.ClientBuffer))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	return errors.Join(errs...)
}
