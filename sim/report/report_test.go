package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pifo-sim/pifo-sim/sim"
	"github.com/pifo-sim/pifo-sim/sim/sweep"
	"github.com/pifo-sim/pifo-sim/sim/trace"
)

func singleResult() *sweep.Result {
	return &sweep.Result{
		Mode: sweep.ModeSingle,
		Rows: []sweep.Row{
			{
				Point:       sweep.Point{Queues: 2, MaxRank: 3},
				PacketCount: 100000,
				Stages:      []sim.StageMetrics{sim.Collect("stage1", 2, sim.InversionStats{Total: 2500, PerRank: map[int]int64{1: 2000, 3: 500}}, 100000, 3)},
			},
			{
				Point:       sweep.Point{Queues: 4, MaxRank: 3},
				PacketCount: 100000,
				Stages:      []sim.StageMetrics{sim.Collect("stage1", 4, sim.InversionStats{Total: 1000, PerRank: map[int]int64{2: 1000}}, 100000, 3)},
			},
		},
	}
}

func hierarchicalResult() *sweep.Result {
	return &sweep.Result{
		Mode: sweep.ModeHierarchical,
		Rows: []sweep.Row{{
			Point:       sweep.Point{Queues: 2, Stage2Queues: 3, MaxRank: 2},
			PacketCount: 10,
			Stages: []sim.StageMetrics{
				sim.Collect("stage1", 2, sim.InversionStats{Total: 3, PerRank: map[int]int64{1: 2, 2: 1}}, 10, 2),
				sim.Collect("stage2", 3, sim.InversionStats{Total: 1, PerRank: map[int]int64{2: 1}}, 10, 2),
			},
		}},
	}
}

func TestWriteSweepCSV_SingleStage(t *testing.T) {
	// GIVEN two single-stage rows, the first with 2500 inversions over 100000 packets
	var buf bytes.Buffer

	// WHEN written
	require.NoError(t, WriteSweepCSV(&buf, singleResult()))

	// THEN the header and three-decimal values match the sweep format
	want := "Num Qs, Max Rank, Norm. Mean Inversions\n" +
		"2, 3, 0.025\n" +
		"4, 3, 0.010\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSweepCSV_Hierarchical(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSweepCSV(&buf, hierarchicalResult()))
	want := "S1 Qs, S2 Qs, Max Rank, S1 Norm. Mean Inversions, S2 Norm. Mean Inversions\n" +
		"2, 3, 2, 0.300, 0.100\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSweepCSV_StageCountMismatch_Errors(t *testing.T) {
	res := hierarchicalResult()
	res.Mode = sweep.ModeSingle
	assert.Error(t, WriteSweepCSV(&bytes.Buffer{}, res))
}

func TestWritePerRankCSV_Blocks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePerRankCSV(&buf, singleResult()))
	want := "MR: 3, NQs: 2\n" +
		"0.020 0.000 0.005 \n" +
		"MR: 3, NQs: 4\n" +
		"0.000 0.010 0.000 \n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WritePerRankCSV(&buf, hierarchicalResult()))
	want = "MR: 2, S1_qs: 2, S2_qs: 3, Stage: 1, NQs: 2\n" +
		"0.200 0.100 \n" +
		"MR: 2, S1_qs: 2, S2_qs: 3, Stage: 2, NQs: 3\n" +
		"0.000 0.100 \n"
	assert.Equal(t, want, buf.String())
}

func TestWritePerRankCSV_Hierarchical_TwoLineBlocksParseLikeSingle(t *testing.T) {
	// GIVEN a hierarchical per-rank file
	var buf bytes.Buffer
	require.NoError(t, WritePerRankCSV(&buf, hierarchicalResult()))

	// WHEN read back two lines at a time
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	var queues []string
	for i := 0; i < len(lines); i += 2 {
		header, values := lines[i], lines[i+1]
		require.True(t, strings.HasPrefix(header, "MR: 2,"), header)
		_, nqs, found := strings.Cut(header, "NQs: ")
		require.True(t, found, header)
		queues = append(queues, nqs)
		assert.Len(t, strings.Fields(values), 2)
	}

	// THEN each header ends with its stage's queue count
	assert.Equal(t, []string{"2", "3"}, queues)
}

func TestPerRankPath(t *testing.T) {
	assert.Equal(t, "out/results_inv_per_rank.csv", PerRankPath("out/results.csv"))
	assert.Equal(t, "results_inv_per_rank.csv", PerRankPath("results"))
}

func TestSaveSweep_WritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pois.csv")

	require.NoError(t, SaveSweep(path, singleResult()))

	main, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(main), singleHeader))
	perRank, err := os.ReadFile(filepath.Join(dir, "pois_inv_per_rank.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(perRank), "MR: 3, NQs: 2"))
}

func TestRegistry_OneSamplePerStageAndRow(t *testing.T) {
	// GIVEN a hierarchical sweep with one row
	reg, err := Registry(hierarchicalResult())
	require.NoError(t, err)

	// WHEN the registry is gathered
	n, err := promtestutil.GatherAndCount(reg, "pifo_normalized_mean_inversions", "pifo_inversions_total")
	require.NoError(t, err)

	// THEN each stage contributes one sample per gauge
	assert.Equal(t, 4, n)

	expected := `
# HELP pifo_inversions_total Inversion count per run, averaged over iterations.
# TYPE pifo_inversions_total gauge
pifo_inversions_total{max_rank="2",mode="hierarchical",queues="2",stage="stage1",stage2_queues="3"} 3
pifo_inversions_total{max_rank="2",mode="hierarchical",queues="2",stage="stage2",stage2_queues="3"} 1
`
	assert.NoError(t, promtestutil.GatherAndCompare(reg, strings.NewReader(expected), "pifo_inversions_total"))
}

func TestWritePrometheusTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pifo.prom")
	require.NoError(t, WritePrometheusTextfile(path, singleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `pifo_normalized_mean_inversions{max_rank="3",mode="single",queues="2",stage="stage1",stage2_queues="0"} 0.025`)
	assert.Contains(t, text, "# TYPE pifo_inversions_total gauge")
}

func TestPrintRunSummary(t *testing.T) {
	// GIVEN a traced hierarchical run
	packets := []sim.Packet{{Rank: 5, ID: 1}, {Rank: 3, ID: 2}, {Rank: 1, ID: 3}, {Rank: 4, ID: 4}, {Rank: 2, ID: 5}}
	res, err := sim.Run(context.Background(), sim.RunConfig{
		NumQueues: 2, Stage2Queues: 2, MaxRank: 5, TraceLevel: trace.TraceLevelDecisions,
	}, packets)
	require.NoError(t, err)

	// WHEN summarized
	var buf bytes.Buffer
	PrintRunSummary(&buf, res)

	// THEN both stages and the decision trace are reported
	out := buf.String()
	assert.Contains(t, out, "--- stage1 (2 queues) ---")
	assert.Contains(t, out, "--- stage2 (2 queues) ---")
	assert.Contains(t, out, "Norm. Mean Inversions: 0.400")
	assert.Contains(t, out, "Final Bounds         : [5 2]")
	assert.Contains(t, out, "=== Decision Trace ===")
	assert.Contains(t, out, "Decisions            : 9")
	assert.Contains(t, out, "  stage1             : 5\n")
	assert.Contains(t, out, "  stage2             : 4\n")
}

func TestPrintRunSummary_SingleStage_NoPerStageDecisions(t *testing.T) {
	packets := []sim.Packet{{Rank: 2, ID: 1}, {Rank: 1, ID: 2}}
	res, err := sim.Run(context.Background(), sim.RunConfig{
		NumQueues: 2, MaxRank: 2, TraceLevel: trace.TraceLevelDecisions,
	}, packets)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintRunSummary(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "Decisions            : 2")
	assert.NotContains(t, out, "  stage1")
}
