package config

import (
	"fmt"
	"net"
)

const defaultPProfAddr = "127.0.0.1:6060"

// PProfConfig serves net/http/pprof on its own listener, apart from the order API.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	if !c.Enabled {
		return "\n--- PProf ---\n  enabled: false\n"
	}
	return fmt.Sprintf("\n--- PProf ---\n  enabled: true\n  address: %s\n", c.Addr)
}

// Validate defaults the address to loopback and rejects one without a port.
func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		c.Addr = defaultPProfAddr
	}
	if _, port, err := net.SplitHostPort(c.Addr); err != nil || port == "" {
		return fmt.Errorf("pprof address %q must be host:port", c.Addr)
	}
	return nil
}
