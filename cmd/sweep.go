package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pifo-sim/pifo-sim/sim/report"
	"github.com/pifo-sim/pifo-sim/sim/sweep"
)

var (
	sweepConfigPath  string
	sweepOutPath     string
	sweepPromOutPath string
	sweepSeed        int64
	sweepTracePath   string
	sweepParallelism int
)

// sweepOptions are the command-line overrides applied on top of the YAML config.
// A nil pointer leaves the YAML value alone.
type sweepOptions struct {
	ConfigPath  string
	OutPath     string
	PromOutPath string
	Seed        *int64
	TracePath   string
	Parallelism int
}

// runSweep loads the sweep config, applies overrides, runs it and writes
// the reports.
func runSweep(ctx context.Context, opts sweepOptions) (*sweep.Result, error) {
	cfg := sweep.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := sweep.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	if opts.TracePath != "" {
		cfg.TracePath = opts.TracePath
	}
	if opts.Parallelism > 0 {
		cfg.Parallelism = opts.Parallelism
	}
	if opts.OutPath == "" {
		return nil, fmt.Errorf("output path is required")
	}

	logrus.Infof("Starting %s sweep: queues=%v stage2=%v max_ranks=%v iterations=%d",
		cfg.Mode, cfg.QueueCounts, cfg.Stage2QueueCounts, cfg.MaxRanks, cfg.Iterations)
	res, err := sweep.Run(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	if err := report.SaveSweep(opts.OutPath, res); err != nil {
		return nil, err
	}
	logrus.Infof("Wrote %s and %s", opts.OutPath, report.PerRankPath(opts.OutPath))
	if opts.PromOutPath != "" {
		if err := report.WritePrometheusTextfile(opts.PromOutPath, res); err != nil {
			return nil, err
		}
		logrus.Infof("Wrote %s", opts.PromOutPath)
	}
	return res, nil
}

// sweepCmd runs the simulator over a grid of configurations
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep queue counts and max ranks, writing the sweep CSV and per-rank CSV",
	Run: func(cmd *cobra.Command, args []string) {
		opts := sweepOptions{
			ConfigPath:  sweepConfigPath,
			OutPath:     sweepOutPath,
			PromOutPath: sweepPromOutPath,
			TracePath:   sweepTracePath,
			Parallelism: sweepParallelism,
		}
		// CLI --seed overrides the YAML seed only when explicitly set
		if cmd.Flags().Changed("seed") {
			opts.Seed = &sweepSeed
		}
		if _, err := runSweep(cmd.Context(), opts); err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		logrus.Info("Sweep complete.")
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepConfigPath, "config", "", "Sweep YAML config (defaults to the built-in grid)")
	sweepCmd.Flags().StringVar(&sweepOutPath, "out", "results.csv", "Sweep CSV output; per-rank blocks go to <out>_inv_per_rank.csv")
	sweepCmd.Flags().StringVar(&sweepPromOutPath, "prom-out", "", "Optional Prometheus textfile output")
	sweepCmd.Flags().Int64Var(&sweepSeed, "seed", 0, "Seed for rank generation (overrides the config)")
	sweepCmd.Flags().StringVar(&sweepTracePath, "trace", "", "Replay this packet trace instead of generating (overrides the config)")
	sweepCmd.Flags().IntVar(&sweepParallelism, "parallelism", 0, "Configurations run concurrently (overrides the config)")

	rootCmd.AddCommand(sweepCmd)
}
