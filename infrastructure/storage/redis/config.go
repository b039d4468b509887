// Package redis provides the shared cache tier backed by Redis.
package redis

import (
	"time"
)

// Config holds the Redis connection settings for the shared tier.
type Config struct {
	// Address is the Redis server address (host:port).
	Address string
	// Password authenticates the connection (optional).
	Password string
	// DB selects the Redis database index.
	DB int
	// MaxRetries bounds command retries before giving up.
	MaxRetries int
	// DialTimeout bounds new connection establishment.
	DialTimeout time.Duration
	// ReadTimeout bounds socket reads.
	ReadTimeout time.Duration
	// WriteTimeout bounds socket writes.
	WriteTimeout time.Duration
	// PoolSize caps the number of socket connections.
	PoolSize int
	// MinIdleConns keeps this many connections warm.
	MinIdleConns int
	// KeyPrefix namespaces every cache key in the shared keyspace.
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:      "localhost:6379",
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "modelcache:",
	}
}

// ConfigOption overrides one connection setting.
type ConfigOption func(*Config)

// WithAddress sets the Redis server address.
func WithAddress(addr string) ConfigOption {
	return func(c *Config) { c.Address = addr }
}

// WithPassword sets the authentication password.
func WithPassword(password string) ConfigOption {
	return func(c *Config) { c.Password = password }
}

// WithDB sets the database index.
func WithDB(db int) ConfigOption {
	return func(c *Config) { c.DB = db }
}

// WithKeyPrefix sets the keyspace prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) { c.PoolSize = size }
}

// WithTimeouts sets the dial, read, and write timeouts.
func WithTimeouts(dial, read, write time.Duration) ConfigOption {
	return func(c *Config) {
		c.DialTimeout = dial
		c.ReadTimeout = read
		c.WriteTimeout = write
	}
}
