package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultLivenessInterval = 20 * time.Second
	minLivenessInterval     = time.Second
)

// ProbesConfig names the files checked by the orchestrator's exec probes.
// The liveness file is touched every LivenessInterval while the service runs.
type ProbesConfig struct {
	ReadinessFileName string        `koanf:"readinessfilename"`
	LivenessFileName  string        `koanf:"livenessfilename"`
	LivenessInterval  time.Duration `koanf:"livenessinterval"`
}

func (c *ProbesConfig) String() string {
	return fmt.Sprintf("\n--- Probes ---\n  readinessfilename: %s\n  livenessfilename: %s\n  livenessinterval: %s\n",
		c.ReadinessFileName, c.LivenessFileName, c.LivenessInterval)
}

// Validate places unset probe files in the temp directory.
func (c *ProbesConfig) Validate() error {
	if c.ReadinessFileName == "" {
		c.ReadinessFileName = filepath.Join(os.TempDir(), "fulfillment-ready")
	}
	if c.LivenessFileName == "" {
		c.LivenessFileName = filepath.Join(os.TempDir(), "fulfillment-live")
	}
	if c.ReadinessFileName == c.LivenessFileName {
		return fmt.Errorf("readiness and liveness probes share the file %s", c.ReadinessFileName)
	}
	if c.LivenessInterval == 0 {
		c.LivenessInterval = defaultLivenessInterval
	}
	if c.LivenessInterval < minLivenessInterval {
		return fmt.Errorf("liveness interval %s is below %s", c.LivenessInterval, minLivenessInterval)
	}
	return nil
}
