// Package report writes sweep and run results: the sweep CSV, the per-rank
// inversion blocks, a Prometheus textfile and a human-readable run summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pifo-sim/pifo-sim/sim/sweep"
)

const (
	singleHeader       = "Num Qs, Max Rank, Norm. Mean Inversions"
	hierarchicalHeader = "S1 Qs, S2 Qs, Max Rank, S1 Norm. Mean Inversions, S2 Norm. Mean Inversions"
)

// PerRankPath derives the per-rank file name from the sweep CSV path:
// "out/results.csv" becomes "out/results_inv_per_rank.csv".
func PerRankPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + "_inv_per_rank.csv"
}

// WriteSweepCSV writes one line per row with three-decimal values.
func WriteSweepCSV(w io.Writer, res *sweep.Result) error {
	bw := bufio.NewWriter(w)
	hier := res.Mode == sweep.ModeHierarchical
	header := singleHeader
	if hier {
		header = hierarchicalHeader
	}
	if _, err := fmt.Fprintln(bw, header); err != nil {
		return fmt.Errorf("writing sweep header: %w", err)
	}
	for i, row := range res.Rows {
		var err error
		if hier {
			if len(row.Stages) != 2 {
				return fmt.Errorf("row %d: hierarchical row has %d stages", i, len(row.Stages))
			}
			_, err = fmt.Fprintf(bw, "%d, %d, %d, %.3f, %.3f\n", row.Queues, row.Stage2Queues, row.MaxRank,
				row.Stages[0].NormalizedMeanInversions, row.Stages[1].NormalizedMeanInversions)
		} else {
			if len(row.Stages) != 1 {
				return fmt.Errorf("row %d: single-stage row has %d stages", i, len(row.Stages))
			}
			_, err = fmt.Fprintf(bw, "%d, %d, %.3f\n", row.Queues, row.MaxRank, row.Stages[0].NormalizedMeanInversions)
		}
		if err != nil {
			return fmt.Errorf("writing sweep row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WritePerRankCSV writes a two-line block per row and stage: a "MR: ..."
// label line ending in "NQs: <n>", then the space-separated normalized
// inversions, rank 1 first. Hierarchical labels also carry both queue counts
// and the stage number.
func WritePerRankCSV(w io.Writer, res *sweep.Result) error {
	bw := bufio.NewWriter(w)
	for i, row := range res.Rows {
		for s, m := range row.Stages {
			var err error
			if res.Mode == sweep.ModeHierarchical {
				_, err = fmt.Fprintf(bw, "MR: %d, S1_qs: %d, S2_qs: %d, Stage: %d, NQs: %d\n",
					row.MaxRank, row.Queues, row.Stage2Queues, s+1, m.NumQueues)
			} else {
				_, err = fmt.Fprintf(bw, "MR: %d, NQs: %d\n", row.MaxRank, m.NumQueues)
			}
			if err != nil {
				return fmt.Errorf("writing per-rank block %d: %w", i, err)
			}
			for _, v := range m.PerRankNormalized {
				if _, err := fmt.Fprintf(bw, "%.3f ", v); err != nil {
					return fmt.Errorf("writing per-rank block %d: %w", i, err)
				}
			}
			if _, err := fmt.Fprintln(bw); err != nil {
				return fmt.Errorf("writing per-rank block %d: %w", i, err)
			}
		}
	}
	return bw.Flush()
}

// SaveSweep writes the sweep CSV to csvPath and the per-rank blocks next to it.
func SaveSweep(csvPath string, res *sweep.Result) error {
	if err := writeFile(csvPath, func(w io.Writer) error { return WriteSweepCSV(w, res) }); err != nil {
		return err
	}
	return writeFile(PerRankPath(csvPath), func(w io.Writer) error { return WritePerRankCSV(w, res) })
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
