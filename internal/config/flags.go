package config

import (
	"flag"
	"time"
)

// Flags holds command-line overrides. Zero values leave the config alone.
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	Timeout    time.Duration
	MeshCells  int
	OutDir     string
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Script evaluation timeout")
	fs.IntVar(&f.MeshCells, "mesh-cells", 0, "Marching cubes resolution for solids")
	fs.StringVar(&f.OutDir, "out-dir", "", "Directory for exported files")
	return f
}

// ApplyFlags applies CLI flag overrides to the config.
func (c *Config) ApplyFlags(f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		c.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		c.Logging.LogFile = f.LogFile
	}
	if f.Timeout > 0 {
		c.Engine.Timeout = f.Timeout
	}
	if f.MeshCells > 0 {
		c.Kernel.MeshCells = f.MeshCells
	}
	if f.OutDir != "" {
		c.Export.Dir = f.OutDir
	}
}
