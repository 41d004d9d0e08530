// wpgen bakes waypoint navigation data from sampled adjacency grids.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-navgen/internal/config"
	"github.com/Faultbox/midgard-navgen/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	flags config.Flags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "wpgen",
		Short:         "Waypoint navigation mesh generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&a.flags)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return initLogging(cfg.Logging)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	a.flags.Register(root.PersistentFlags())
	root.AddCommand(a.generateCmd(), a.infoCmd(), a.floodCmd(), a.gatCmd(), a.mapsCmd())
	return root
}

func initLogging(lc config.LoggingConfig) error {
	var fc logger.FileConfig
	if lc.LogFile != "" {
		fc = logger.DefaultFileConfig(lc.LogFile)
		if lc.MaxSizeMB > 0 {
			fc.MaxSizeMB = lc.MaxSizeMB
		}
		if lc.MaxBackups > 0 {
			fc.MaxBackups = lc.MaxBackups
		}
		if lc.MaxAgeDays > 0 {
			fc.MaxAgeDays = lc.MaxAgeDays
		}
	}
	return logger.InitWithFileConfig(lc.Level, fc, true)
}
