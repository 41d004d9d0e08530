package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/internal/logger"
	"github.com/Faultbox/midgard-navgen/pkg/formats"
	"github.com/Faultbox/midgard-navgen/pkg/grf"
)

// GAT cells are half a ground tile apart.
const defaultGATCellSize = 5

func (a *app) gatCmd() *cobra.Command {
	var (
		archive  string
		cellSize float32
		maxStep  float32
	)
	c := &cobra.Command{
		Use:   "gat <map.gat> <out.tga>",
		Short: "Convert a ground altitude table into a grid file",
		Long: "Convert a ground altitude table into a grid file. With --grf the map\n" +
			"is read from the archive, e.g. data/prontera.gat.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGAT(archive, args[0])
			if err != nil {
				return err
			}
			grid := g.AdjGrid(cellSize, maxStep)
			if err := grid.WriteGridFile(args[1]); err != nil {
				return err
			}
			logger.Named("gat").Debug("converted", zap.String("map", args[0]), zap.Int("samples", grid.CountActive()))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d cells, %d linked -> %s\n",
				args[0], g.Width, g.Depth, grid.CountActive(), args[1])
			return nil
		},
	}
	c.Flags().StringVar(&archive, "grf", "", "Read the map from this GRF archive")
	c.Flags().Float32Var(&cellSize, "cell-size", defaultGATCellSize, "World units between cells")
	c.Flags().Float32Var(&maxStep, "max-step", 3, "Largest altitude change between linked cells")
	return c
}

func (a *app) mapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maps <archive.grf>",
		Short: "List the ground altitude tables in a GRF archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := grf.Open(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()
			for _, name := range ar.List() {
				if strings.EqualFold(path.Ext(name), ".gat") {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}
			return nil
		},
	}
}

func loadGAT(archive, name string) (*formats.GAT, error) {
	if archive == "" {
		return formats.ParseGATFile(name)
	}
	ar, err := grf.Open(archive)
	if err != nil {
		return nil, err
	}
	defer ar.Close()
	data, err := ar.Read(name)
	if err != nil {
		return nil, err
	}
	return formats.ParseGAT(data)
}
