package report

import (
	"fmt"
	"io"

	"github.com/pifo-sim/pifo-sim/sim"
	"github.com/pifo-sim/pifo-sim/sim/trace"
)

// PrintRunSummary writes a human-readable summary of one run.
func PrintRunSummary(w io.Writer, res *sim.RunResult) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Run ID               : %s\n", res.RunID)
	fmt.Fprintf(w, "Packets              : %d\n", res.PacketCount)
	fmt.Fprintf(w, "Delivered            : %d\n", res.Delivered)
	fmt.Fprintf(w, "Max Rank             : %d\n", res.Config.MaxRank)
	fmt.Fprintf(w, "Wall Time            : %s\n", res.WallTime)
	for _, m := range sim.CollectRun(res) {
		st := res.Stage(m.Stage)
		fmt.Fprintf(w, "--- %s (%d queues) ---\n", m.Stage, m.NumQueues)
		fmt.Fprintf(w, "Admitted             : %d\n", st.Stats.Packets)
		fmt.Fprintf(w, "Inversions           : %d\n", st.Stats.Total)
		fmt.Fprintf(w, "Norm. Mean Inversions: %.3f\n", m.NormalizedMeanInversions)
		fmt.Fprintf(w, "Final Bounds         : %v\n", st.Bounds)
		fmt.Fprintf(w, "Queue Counts         : %v\n", st.QueueCounts)
	}

	if res.Trace == nil || len(res.Trace.Admissions) == 0 {
		return
	}
	sum := trace.Summarize(res.Trace)
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Decisions            : %d\n", sum.TotalDecisions)
	if len(res.Stages) > 1 {
		for _, st := range res.Stages {
			fmt.Fprintf(w, "%-21s: %d\n", "  "+st.Name, len(res.Trace.ForStage(st.Name)))
		}
	}
	fmt.Fprintf(w, "Inversion Rate       : %.3f\n", sum.InversionRate)
	fmt.Fprintf(w, "Mean Push-Down Cost  : %.3f\n", sum.MeanCost)
	fmt.Fprintf(w, "Max Push-Down Cost   : %d\n", sum.MaxCost)
}
