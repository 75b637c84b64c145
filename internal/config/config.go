// Package config aggregates the configuration of the fulfillment service.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/gofulfillment/pkg/config"
	"github.com/abgdnv/gofulfillment/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GrpcServer config.GrpcServerConfig `koanf:"grpc"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Events     config.EventsConfig     `koanf:"events"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Kafka      config.KafkaConfig      `koanf:"kafka"`
	Payments   config.PaymentsConfig   `koanf:"payments"`
	Redis      config.RedisConfig      `koanf:"redis"`
	IdP        config.IdP              `koanf:"idp"`
	Probes     config.ProbesConfig     `koanf:"probes"`
}

// NeedsNATS reports whether a NATS connection is required by the event publisher or the payment subscriber.
func (c *Config) NeedsNATS() bool {
	return c.Events.Broker == config.BrokerNATS || c.Payments.Enabled
}

// String returns the configuration with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GrpcServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Events.String())
	if c.NeedsNATS() {
		b.WriteString(c.Nats.String())
	}
	if c.Events.Broker == config.BrokerKafka {
		b.WriteString(c.Kafka.String())
	}
	b.WriteString(c.Payments.String())
	if c.Payments.Enabled {
		b.WriteString(c.Redis.String())
	}
	b.WriteString(c.IdP.String())
	b.WriteString(c.Probes.String())
	return b.String()
}

// Validate checks the sections that the configured features need.
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.GrpcServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.Telemetry,
		&c.Events,
		&c.Payments,
		&c.IdP,
		&c.Probes,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.NeedsNATS() {
		if err := c.Nats.Validate(); err != nil {
			return err
		}
	}
	if c.Events.Broker == config.BrokerKafka {
		if err := c.Kafka.Validate(); err != nil {
			return err
		}
	}
	if c.PProf.Enabled && strings.HasSuffix(c.PProf.Addr, fmt.Sprintf(":%d", c.HTTPServer.Port)) {
		return fmt.Errorf("pprof address %s collides with the HTTP server port", c.PProf.Addr)
	}
	if c.Payments.Enabled && c.Redis.Addr != "" {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("payments de-duplication: %w", err)
		}
	}
	return nil
}
