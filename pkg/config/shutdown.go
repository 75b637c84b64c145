package config

import (
	"context"
	"fmt"
	"time"
)

const defaultShutdownTimeout = 15 * time.Second

// ShutdownConfig bounds how long each server and exporter may drain after SIGTERM.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

// Validate fills the default timeout when none is configured.
func (c *ShutdownConfig) Validate() error {
	switch {
	case c.Timeout == 0:
		c.Timeout = defaultShutdownTimeout
	case c.Timeout < 0:
		return fmt.Errorf("shutdown timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Context starts a drain deadline. It is detached from the signal context,
// which is already done when shutdown begins.
func (c *ShutdownConfig) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Timeout)
}
