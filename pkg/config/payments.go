package config

import (
	"fmt"
	"strings"
)

// PaymentsConfig enables the payment status subscriber.
type PaymentsConfig struct {
	Enabled    bool             `koanf:"enabled"`
	Subscriber SubscriberConfig `koanf:"subscriber"`
}

// String returns a string representation of the payments configuration.
func (c *PaymentsConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Payments ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if c.Enabled {
		b.WriteString(c.Subscriber.String())
	}
	return b.String()
}

func (c *PaymentsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.Subscriber.Validate()
}
