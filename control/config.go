// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Dispatcher configuration with defaults and validation.

package control

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-udp/api"
)

// Config holds parameters fixed for the lifetime of a manager.
type Config struct {
	MaxEvents     int           // Readiness events fetched per poll cycle
	PollTimeout   time.Duration // Upper bound on a single wait; <0 blocks until woken
	EnableMetrics bool          // Whether to publish counters into the metrics registry
	EnableDebug   bool          // Whether to register debug probes
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		MaxEvents:     128,
		PollTimeout:   100 * time.Millisecond,
		EnableMetrics: true,
		EnableDebug:   true,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.MaxEvents <= 0 {
		return fmt.Errorf("%w: MaxEvents must be positive, got %d", api.ErrInvalidArgument, c.MaxEvents)
	}
	return nil
}

// PollTimeoutMillis converts PollTimeout to the epoll wait argument.
func (c *Config) PollTimeoutMillis() int {
	if c.PollTimeout < 0 {
		return -1
	}
	return int(c.PollTimeout / time.Millisecond)
}
