package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/internal/logger"
	"github.com/Faultbox/midgard-navgen/internal/navdata"
	"github.com/Faultbox/midgard-navgen/internal/scene"
	"github.com/Faultbox/midgard-navgen/internal/waypoint"
	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

func (a *app) generateCmd() *cobra.Command {
	var (
		frontier  []string
		scenePath string
		strict    bool
	)
	c := &cobra.Command{
		Use:   "generate <grid.tga>...",
		Short: "Generate waypoint polygons for chunk grids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parseFrontier(frontier)
			if err != nil {
				return err
			}
			var physics waypoint.Physics
			if scenePath != "" {
				s, err := scene.Load(scenePath)
				if err != nil {
					return err
				}
				physics = s
			}
			return a.generate(cmd.OutOrStdout(), args, points, physics, strict)
		},
	}
	c.Flags().StringArrayVar(&frontier, "frontier", nil, "World position x,y,z that seeds connectivity (repeatable)")
	c.Flags().StringVar(&scenePath, "scene", "", "Scene used to classify chunk edges")
	c.Flags().BoolVar(&strict, "strict", false, "Fail when any chunk fails")
	return c
}

// generate runs every chunk and keeps going past failures. It fails when
// all chunks failed, or on any failure in strict mode.
func (a *app) generate(out io.Writer, paths []string, frontier []mathx.Vec3, physics waypoint.Physics, strict bool) error {
	format, err := navdata.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	gen := waypoint.New(a.cfg.Generator.Waypoint(), logger.Named("waypoint"))

	var errs error
	for _, path := range paths {
		if err := a.generateChunk(out, gen, path, frontier, physics, format); err != nil {
			logger.Error("chunk failed", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	if errs == nil {
		return nil
	}

	failed := multierr.Errors(errs)
	if strict || len(failed) == len(paths) {
		return errs
	}
	fmt.Fprintf(out, "%d of %d chunks failed:\n", len(failed), len(paths))
	for _, e := range failed {
		fmt.Fprintf(out, "  %v\n", e)
	}
	return nil
}

func (a *app) generateChunk(out io.Writer, gen *waypoint.Generator, path string, frontier []mathx.Vec3, physics waypoint.Physics, format navdata.Format) error {
	grid, err := formats.ParseGridFile(path)
	if err != nil {
		return err
	}
	chunk := chunkName(path)

	res, err := gen.Generate(grid, waypoint.Options{
		Chunk:    chunk,
		Physics:  physics,
		Progress: &logProgress{log: logger.ForChunk(chunk)},
		Frontier: frontier,
	})
	if err != nil {
		return err
	}

	set, dropped := navdata.FromPolygons(chunk, res.Polygons, grid.Transform(), a.cfg.Generator.Limits(), logger.ForChunk(chunk))
	data, err := navdata.Marshal(set, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.cfg.Output.Directory, 0755); err != nil {
		return err
	}
	dst := filepath.Join(a.cfg.Output.Directory, chunk+format.Ext())
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}

	st := res.Stats
	fmt.Fprintf(out, "%-12s nodes %5d  leaves %5d  merges %5d  polygons %5d  removed %4d  diagnostics %3d  -> %s\n",
		chunk, st.Nodes, st.Leaves, st.Merges, len(set.Polys), st.Removed, len(res.Diagnostics)+len(dropped), dst)
	return nil
}

// chunkName derives the chunk id from a grid file name.
func chunkName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseFrontier parses "x,y,z" world positions.
func parseFrontier(values []string) ([]mathx.Vec3, error) {
	out := make([]mathx.Vec3, 0, len(values))
	for _, s := range values {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("frontier %q: expected x,y,z", s)
		}
		var v [3]float32
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, fmt.Errorf("frontier %q: %w", s, err)
			}
			v[i] = float32(f)
		}
		out = append(out, mathx.Vec3{X: v[0], Y: v[1], Z: v[2]})
	}
	return out, nil
}
