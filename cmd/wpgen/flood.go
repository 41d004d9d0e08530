package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/internal/flood"
	"github.com/Faultbox/midgard-navgen/internal/logger"
	"github.com/Faultbox/midgard-navgen/internal/scene"
)

// logProgress logs progress at debug level and stops a flood after a
// point budget.
type logProgress struct {
	log       *zap.Logger
	maxPoints int
}

func (p *logProgress) Filled(points int) bool {
	p.log.Debug("flood progress", zap.Int("points", points))
	return p.maxPoints > 0 && points >= p.maxPoints
}

func (p *logProgress) OnProgress(phase string, n int) {
	p.log.Debug("phase done", zap.String("phase", phase), zap.Int("n", n))
}

func (a *app) floodCmd() *cobra.Command {
	var maxPoints int
	c := &cobra.Command{
		Use:   "flood <scene.yaml> <out.tga>",
		Short: "Sample a scene into a grid file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scene.Load(args[0])
			if err != nil {
				return err
			}
			opts := a.cfg.Flood.Options(flood.Options{
				Min:        s.GridMin(),
				Resolution: s.Grid.Resolution,
				Width:      s.Grid.Width,
				Depth:      s.Grid.Depth,
			})
			log := logger.Named("flood")
			f := flood.New(s, opts, log, &logProgress{log: log, maxPoints: maxPoints})

			res, err := f.Flood(cmd.Context(), s.SeedPoints())
			if err != nil {
				return err
			}
			if err := res.Grid.WriteGridFile(args[1]); err != nil {
				return err
			}

			status := "complete"
			if res.Aborted {
				status = "stopped at point budget"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d grid, %d samples, %d links, %d refused, %s -> %s\n",
				s.Name, opts.Width, opts.Depth, res.Points, res.Links, res.Overflow, status, args[1])
			return nil
		},
	}
	c.Flags().IntVar(&maxPoints, "max-points", 0, "Stop after this many samples (0 = no limit)")
	return c
}
