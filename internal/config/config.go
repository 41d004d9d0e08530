// Package config handles generator configuration loading and management.
package config

import (
	"github.com/Faultbox/midgard-navgen/internal/flood"
	"github.com/Faultbox/midgard-navgen/internal/navdata"
	"github.com/Faultbox/midgard-navgen/internal/waypoint"
	"github.com/Faultbox/midgard-navgen/pkg/formats"
)

// Config holds all tool settings.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Flood     FloodConfig     `yaml:"flood"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GeneratorConfig holds waypoint generation tuning.
type GeneratorConfig struct {
	MaxHeightRange          float32 `yaml:"max_height_range"`
	EvenSplitThreshold      float32 `yaml:"even_split_threshold"`
	PointEpsilon            float32 `yaml:"point_epsilon"`
	VerticalProbeStep       float32 `yaml:"vertical_probe_step"`
	BalanceMin              float32 `yaml:"balance_min"`
	BalanceMax              float32 `yaml:"balance_max"`
	FrontierHeightTolerance float32 `yaml:"frontier_height_tolerance"`
	FrontierInset           float32 `yaml:"frontier_inset"`
	MaxPolygonVertices      int     `yaml:"max_polygon_vertices"`
	MaxPolygons             int     `yaml:"max_polygons"`
}

// FloodConfig holds flood sampling settings.
type FloodConfig struct {
	Resolution          float32 `yaml:"resolution"` // 0 keeps the scene's own
	MaxLayers           int     `yaml:"max_layers"`
	LayerMergeTolerance float32 `yaml:"layer_merge_tolerance"`
	ProgressEvery       int     `yaml:"progress_every"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Format    string `yaml:"format"` // section or msgpack
	Directory string `yaml:"directory"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	wp := waypoint.DefaultConfig()
	lim := navdata.DefaultLimits()
	return &Config{
		Generator: GeneratorConfig{
			MaxHeightRange:          wp.MaxHeightRange,
			EvenSplitThreshold:      wp.EvenSplitThreshold,
			PointEpsilon:            wp.PointEpsilon,
			VerticalProbeStep:       wp.VerticalProbeStep,
			BalanceMin:              wp.BalanceMin,
			BalanceMax:              wp.BalanceMax,
			FrontierHeightTolerance: wp.FrontierHeightTolerance,
			FrontierInset:           wp.FrontierInset,
			MaxPolygonVertices:      lim.MaxVertices,
			MaxPolygons:             lim.MaxPolygons,
		},
		Flood: FloodConfig{
			MaxLayers:           formats.MaxLayers,
			LayerMergeTolerance: 0.05,
			ProgressEvery:       4096,
		},
		Output: OutputConfig{
			Format:    string(navdata.FormatSection),
			Directory: ".",
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Waypoint returns the generator tuning.
func (g GeneratorConfig) Waypoint() waypoint.Config {
	return waypoint.Config{
		MaxHeightRange:          g.MaxHeightRange,
		EvenSplitThreshold:      g.EvenSplitThreshold,
		PointEpsilon:            g.PointEpsilon,
		VerticalProbeStep:       g.VerticalProbeStep,
		BalanceMin:              g.BalanceMin,
		BalanceMax:              g.BalanceMax,
		FrontierHeightTolerance: g.FrontierHeightTolerance,
		FrontierInset:           g.FrontierInset,
	}
}

// Limits returns the export limits.
func (g GeneratorConfig) Limits() navdata.Limits {
	return navdata.Limits{MaxVertices: g.MaxPolygonVertices, MaxPolygons: g.MaxPolygons}
}

// Options returns flood options for a lattice; the lattice resolution is
// replaced when Resolution is set.
func (f FloodConfig) Options(base flood.Options) flood.Options {
	if f.Resolution > 0 {
		scale := base.Resolution / f.Resolution
		base.Width = int(float32(base.Width-1)*scale+0.5) + 1
		base.Depth = int(float32(base.Depth-1)*scale+0.5) + 1
		base.Resolution = f.Resolution
	}
	base.MaxLayers = f.MaxLayers
	base.LayerMergeTolerance = f.LayerMergeTolerance
	base.ProgressEvery = f.ProgressEvery
	return base
}
