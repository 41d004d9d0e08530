package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides. Zero values leave the config alone.
type Flags struct {
	ConfigPath     string
	Debug          bool
	OutDir         string
	Format         string
	LogFile        string
	MaxHeightRange float32
	Resolution     float32
}

// Register binds the flags to a flag set, usually a cobra command's
// persistent flags.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVarP(&f.OutDir, "out", "o", "", "Output directory")
	fs.StringVar(&f.Format, "format", "", "Output format (section or msgpack)")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file as well")
	fs.Float32Var(&f.MaxHeightRange, "max-height-range", 0, "Largest height span of one polygon")
	fs.Float32Var(&f.Resolution, "resolution", 0, "Flood sample spacing in world units")
}

// ApplyFlags applies CLI flag overrides to the config.
func ApplyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.OutDir != "" {
		cfg.Output.Directory = f.OutDir
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.MaxHeightRange > 0 {
		cfg.Generator.MaxHeightRange = f.MaxHeightRange
	}
	if f.Resolution > 0 {
		cfg.Flood.Resolution = f.Resolution
	}
}
