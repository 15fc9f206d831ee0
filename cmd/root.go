package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pifo-sim/pifo-sim/sim"
	"github.com/pifo-sim/pifo-sim/sim/report"
	"github.com/pifo-sim/pifo-sim/sim/trace"
	"github.com/pifo-sim/pifo-sim/sim/workload"
)

var (
	logLevel string // Log verbosity level

	// CLI flags for a single run
	tracePath       string // Packet-trace file to replay
	numQueues       int    // Stage-1 (or only) queue count
	stage2Queues    int    // Stage-2 queue count; 0 runs a single stage
	traceLevel      string // Admission decision tracing
	inputCapacity   int    // Input channel capacity
	printDepartures bool   // Print the dispatcher's departure order
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pifo-sim",
	Short: "SP-PIFO inversion simulator",
	Long:  "Approximates a PIFO scheduler with strict-priority FIFO queues and measures the resulting rank inversions.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runOptions holds everything a single run needs.
type runOptions struct {
	TracePath     string
	NumQueues     int
	Stage2Queues  int
	TraceLevel    trace.TraceLevel
	InputCapacity int
	Departures    bool
}

// runTrace replays a trace file through one topology and prints the summary to w.
func runTrace(ctx context.Context, w io.Writer, opts runOptions) (*sim.RunResult, error) {
	t, err := workload.LoadTrace(opts.TracePath)
	if err != nil {
		return nil, err
	}
	cfg := sim.RunConfig{
		NumQueues:        opts.NumQueues,
		Stage2Queues:     opts.Stage2Queues,
		MaxRank:          t.MaxRank,
		InputCapacity:    opts.InputCapacity,
		TraceLevel:       opts.TraceLevel,
		RecordDepartures: opts.Departures,
	}
	logrus.Infof("Starting simulation of %d packets with %d queues (stage 2: %d), max rank %d",
		len(t.Packets), cfg.NumQueues, cfg.Stage2Queues, t.MaxRank)

	res, err := sim.Run(ctx, cfg, t.Packets)
	if err != nil {
		return nil, err
	}
	report.PrintRunSummary(w, res)
	if opts.Departures {
		fmt.Fprintln(w, "=== Departures ===")
		for _, p := range res.Departures {
			fmt.Fprintln(w, p)
		}
	}
	return res, nil
}

// runCmd replays one packet trace through one topology
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation over a packet-trace file",
	Run: func(cmd *cobra.Command, args []string) {
		if tracePath == "" {
			logrus.Fatalf("Packet trace not provided. Exiting simulation.")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}
		_, err := runTrace(cmd.Context(), os.Stdout, runOptions{
			TracePath:     tracePath,
			NumQueues:     numQueues,
			Stage2Queues:  stage2Queues,
			TraceLevel:    trace.TraceLevel(traceLevel),
			InputCapacity: inputCapacity,
			Departures:    printDepartures,
		})
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&tracePath, "trace", "", "Packet-trace file (\"<count>, <maxRank>\" header, then \"<id> <rank>\" lines)")
	runCmd.Flags().IntVar(&numQueues, "queues", 8, "Number of strict-priority queues (stage 1 when --stage2-queues is set)")
	runCmd.Flags().IntVar(&stage2Queues, "stage2-queues", 0, "Number of stage-2 queues; 0 runs a single stage")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Admission decision tracing (none, decisions)")
	runCmd.Flags().IntVar(&inputCapacity, "input-capacity", sim.DefaultInputCapacity, "Input channel capacity between generator and stage 1")
	runCmd.Flags().BoolVar(&printDepartures, "departures", false, "Print packets in dispatch order")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
