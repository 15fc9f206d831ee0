package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pifo-sim/pifo-sim/sim/workload"
)

var (
	genDist     string
	genPackets  int
	genMaxRank  int
	genSeed     int64
	genOutPath  string
	genHistPath string
)

// generateTrace writes a seeded synthetic trace, and optionally its histogram.
func generateTrace(spec workload.GenSpec, seed int64, outPath, histPath string) (*workload.Trace, error) {
	t, err := workload.GenerateSeeded(spec, seed)
	if err != nil {
		return nil, err
	}
	if err := workload.SaveTrace(outPath, t); err != nil {
		return nil, err
	}
	h := workload.NewHistogram(t)
	logrus.WithFields(logrus.Fields{
		"packets": h.Total(),
		"mean":    fmt.Sprintf("%.2f", h.Mean),
		"stddev":  fmt.Sprintf("%.2f", h.StdDev),
	}).Info("trace generated")
	if histPath == "" {
		return t, nil
	}
	file, err := os.Create(histPath)
	if err != nil {
		return nil, fmt.Errorf("creating histogram file: %w", err)
	}
	if err := workload.WriteHistogram(file, t); err != nil {
		_ = file.Close()
		return nil, err
	}
	return t, file.Close()
}

// genCmd generates a packet-trace file
var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a packet-trace file with ranks from a distribution",
	Run: func(cmd *cobra.Command, args []string) {
		if genOutPath == "" {
			logrus.Fatalf("Output file not provided.")
		}
		spec := workload.GenSpec{Distribution: genDist, Packets: genPackets, MaxRank: genMaxRank}
		if _, err := generateTrace(spec, genSeed, genOutPath, genHistPath); err != nil {
			logrus.Fatalf("Trace generation failed: %v", err)
		}
		logrus.Infof("Wrote %d packets to %s", genPackets, genOutPath)
	},
}

func init() {
	genCmd.Flags().StringVar(&genDist, "dist", workload.DistUniform, "Rank distribution (uniform, poisson)")
	genCmd.Flags().IntVar(&genPackets, "packets", 100000, "Number of packets")
	genCmd.Flags().IntVar(&genMaxRank, "max-rank", 100, "Largest rank; ranks are in [1, max-rank]")
	genCmd.Flags().Int64Var(&genSeed, "seed", 0, "Seed for rank generation")
	genCmd.Flags().StringVar(&genOutPath, "out", "", "Output packet-trace file")
	genCmd.Flags().StringVar(&genHistPath, "hist", "", "Optional rank histogram output")

	rootCmd.AddCommand(genCmd)
}
