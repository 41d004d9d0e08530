package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
)

// maxIssuesShown limits the validation issues printed by info.
const maxIssuesShown = 10

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <grid.tga>",
		Short: "Show grid header, layer usage and height range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := formats.ParseGridFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			layers := 0
			var buf []int
			for z := 0; z < grid.Depth; z++ {
				for x := 0; x < grid.Width; x++ {
					buf = grid.ActiveLayers(buf[:0], x, z)
					if len(buf) > 0 && buf[len(buf)-1]+1 > layers {
						layers = buf[len(buf)-1] + 1
					}
				}
			}
			lo, hi := grid.HeightRange()

			fmt.Fprintf(out, "Grid:       %s\n", args[0])
			fmt.Fprintf(out, "Size:       %d x %d\n", grid.Width, grid.Depth)
			fmt.Fprintf(out, "Resolution: %g\n", grid.Resolution)
			fmt.Fprintf(out, "Min:        %g, %g, %g\n", grid.Min.X, grid.Min.Y, grid.Min.Z)
			fmt.Fprintf(out, "Samples:    %d\n", grid.CountActive())
			fmt.Fprintf(out, "Layers:     %d\n", layers)
			fmt.Fprintf(out, "Heights:    %g .. %g\n", lo, hi)

			issues := grid.Validate()
			fmt.Fprintf(out, "Issues:     %d\n", len(issues))
			for i, is := range issues {
				if i == maxIssuesShown {
					fmt.Fprintf(out, "  ... %d more\n", len(issues)-maxIssuesShown)
					break
				}
				fmt.Fprintf(out, "  (%d, %d) layer %d: %s\n", is.X, is.Z, is.Layer, is.Message)
			}
			return nil
		},
	}
}
