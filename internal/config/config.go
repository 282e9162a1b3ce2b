// Package config handles facet configuration loading and management.
package config

import (
	"fmt"
	"time"
)

// Config holds all facet settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Kernel  KernelConfig  `yaml:"kernel"`
	Export  ExportConfig  `yaml:"export"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// EngineConfig holds script evaluation settings.
type EngineConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// KernelConfig holds solid kernel settings.
type KernelConfig struct {
	MeshCells     int     `yaml:"mesh_cells"`     // marching cubes cells along the longest axis
	WeldTolerance float64 `yaml:"weld_tolerance"` // vertex weld distance for tessellated solids
}

// ExportConfig holds file output settings.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Engine: EngineConfig{
			Timeout: 5 * time.Second,
		},
		Kernel: KernelConfig{
			MeshCells:     64,
			WeldTolerance: 1e-5,
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout: must be positive, got %v", c.Engine.Timeout)
	}
	if c.Kernel.MeshCells < 8 {
		return fmt.Errorf("kernel.mesh_cells: must be at least 8, got %d", c.Kernel.MeshCells)
	}
	if c.Kernel.WeldTolerance <= 0 {
		return fmt.Errorf("kernel.weld_tolerance: must be positive, got %g", c.Kernel.WeldTolerance)
	}
	return nil
}
