// Package redis connects tabstate to Redis: debug lines are published to a
// channel, tailed back from it, and store ownership is leased with a lock key.
package redis

import (
	backend "github.com/redis/go-redis/v9"
)

const (
	// DefaultChannel carries debug lines.
	DefaultChannel = "tabstate:debug"
	// DefaultLockPrefix prefixes window lease keys.
	DefaultLockPrefix = "tabstate:"
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a client for cfg.
func NewClient(cfg Config) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
