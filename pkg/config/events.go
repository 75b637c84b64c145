package config

import (
	"fmt"
	"strings"
)

const (
	BrokerNone  = "none"
	BrokerNATS  = "nats"
	BrokerKafka = "kafka"
)

// EventsConfig selects where order events are published and how publishing is guarded.
type EventsConfig struct {
	Broker     string           `koanf:"broker"`
	Resilience ResilienceConfig `koanf:"resilience"`
}

// String returns a string representation of the events configuration.
func (c *EventsConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Events ---\n")
	b.WriteString(fmt.Sprintf("  broker: %s\n", c.Broker))
	b.WriteString(c.Resilience.String())
	return b.String()
}

func (c *EventsConfig) Validate() error {
	switch c.Broker {
	case "":
		c.Broker = BrokerNone
		return nil
	case BrokerNone:
		return nil
	case BrokerNATS, BrokerKafka:
		return c.Resilience.Validate()
	default:
		return fmt.Errorf("unknown events broker: %s", c.Broker)
	}
}
