package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pifo-sim/pifo-sim/sim"
	"github.com/pifo-sim/pifo-sim/sim/internal/testutil"
	"github.com/pifo-sim/pifo-sim/sim/workload"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidYAML_AppliesDefaults(t *testing.T) {
	// GIVEN a config that sets only the grid
	path := writeFile(t, "sweep.yaml", `
mode: single
queue_counts: [2, 4]
max_ranks: [10, 20]
seed: 42
`)

	// WHEN loaded
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// THEN omitted fields take the defaults
	assert.Equal(t, []int{2, 4}, cfg.QueueCounts)
	assert.Equal(t, []int{10, 20}, cfg.MaxRanks)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 100000, cfg.PacketCount)
	assert.Equal(t, 1, cfg.Iterations)
	assert.Equal(t, workload.DistPoisson, cfg.Distribution)
	assert.Empty(t, cfg.Stage2QueueCounts)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_UnknownField_Rejected(t *testing.T) {
	path := writeFile(t, "sweep.yaml", "mode: single\nqueue_count: [2]\n")
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfig_ValidAndHierarchicalGetsStage2Defaults(t *testing.T) {
	// GIVEN the built-in grid
	d := DefaultConfig()
	assert.NoError(t, d.Validate())

	// WHEN a hierarchical config leaves stage-2 counts out
	c := Config{Mode: ModeHierarchical}
	c.ApplyDefaults()

	// THEN it picks up the default stage-2 grid and validates
	assert.Equal(t, []int{2, 4, 8, 16}, c.Stage2QueueCounts)
	assert.NoError(t, c.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := DefaultConfig()
		c.QueueCounts = []int{2}
		c.MaxRanks = []int{10}
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "tree" }},
		{"single with stage 2 counts", func(c *Config) { c.Stage2QueueCounts = []int{2} }},
		{"hierarchical without stage 2 counts", func(c *Config) { c.Mode = ModeHierarchical; c.Stage2QueueCounts = nil }},
		{"hierarchical with one stage-1 queue", func(c *Config) {
			c.Mode = ModeHierarchical
			c.QueueCounts = []int{1}
			c.Stage2QueueCounts = []int{2}
		}},
		{"zero queue count", func(c *Config) { c.QueueCounts = []int{0} }},
		{"empty queue counts", func(c *Config) { c.QueueCounts = nil }},
		{"zero stage 2 count", func(c *Config) { c.Mode = ModeHierarchical; c.Stage2QueueCounts = []int{0} }},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"empty max ranks", func(c *Config) { c.MaxRanks = nil }},
		{"zero max rank", func(c *Config) { c.MaxRanks = []int{0} }},
		{"zero packets", func(c *Config) { c.PacketCount = 0 }},
		{"unknown distribution", func(c *Config) { c.Distribution = "zipf" }},
	}
	base := valid()
	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), sim.ErrInvalidConfiguration)
		})
	}
}

func TestPoints_Order(t *testing.T) {
	cfg := &Config{Mode: ModeHierarchical, QueueCounts: []int{2, 4}, Stage2QueueCounts: []int{3}}
	got := Points(cfg, []int{10, 20})
	want := []Point{
		{Queues: 2, Stage2Queues: 3, MaxRank: 10},
		{Queues: 2, Stage2Queues: 3, MaxRank: 20},
		{Queues: 4, Stage2Queues: 3, MaxRank: 10},
		{Queues: 4, Stage2Queues: 3, MaxRank: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Points mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_TraceFile_MatchesGoldenDataset(t *testing.T) {
	// GIVEN each golden scenario written as a trace file
	dataset := testutil.LoadGoldenDataset(t)
	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			tr := &workload.Trace{MaxRank: tc.MaxRank}
			for i, r := range tc.Ranks {
				tr.Packets = append(tr.Packets, sim.Packet{Rank: r, ID: float64(i + 1)})
			}
			path := filepath.Join(t.TempDir(), "trace.txt")
			require.NoError(t, workload.SaveTrace(path, tr))

			cfg := &Config{
				Mode:        ModeSingle,
				QueueCounts: []int{tc.Stage1Queues},
				Iterations:  3,
				TracePath:   path,
				Parallelism: 1,
			}
			if tc.Stage2Queues > 0 {
				cfg.Mode = ModeHierarchical
				cfg.Stage2QueueCounts = []int{tc.Stage2Queues}
			}

			// WHEN swept
			res, err := Run(context.Background(), cfg)
			require.NoError(t, err)

			// THEN one row, folded over identical iterations, with zero spread
			require.Len(t, res.Rows, 1)
			row := res.Rows[0]
			assert.Equal(t, tc.MaxRank, row.MaxRank)
			assert.Equal(t, len(tc.Ranks), row.PacketCount)
			testutil.AssertFloat64Equal(t, "stage1", tc.Metrics.Stage1.NormalizedMeanInversions, row.Stages[0].NormalizedMeanInversions, 1e-9)
			assert.Equal(t, 3, row.Stages[0].Iterations)
			if tc.Metrics.Stage2 != nil {
				require.Len(t, row.Stages, 2)
				testutil.AssertFloat64Equal(t, "stage2", tc.Metrics.Stage2.NormalizedMeanInversions, row.Stages[1].NormalizedMeanInversions, 1e-9)
			}
			for _, sd := range row.StdDevs {
				assert.InDelta(t, 0.0, sd, 1e-12)
			}
		})
	}
}

func TestRun_GeneratedGrid_DeterministicAndParallelSafe(t *testing.T) {
	// GIVEN a small generated grid
	cfg := &Config{
		Mode:         ModeSingle,
		QueueCounts:  []int{1, 2, 4},
		MaxRanks:     []int{10, 40},
		PacketCount:  500,
		Iterations:   2,
		Distribution: workload.DistUniform,
		Seed:         7,
		Parallelism:  1,
	}

	// WHEN run sequentially and in parallel
	seq, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	par := *cfg
	par.Parallelism = 4
	got, err := Run(context.Background(), &par)
	require.NoError(t, err)

	// THEN both produce the same rows in grid order
	require.Len(t, seq.Rows, 6)
	if diff := cmp.Diff(seq.Rows, got.Rows, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("parallel sweep differs (-seq +par):\n%s", diff)
	}
	assert.Equal(t, Point{Queues: 1, MaxRank: 10}, seq.Rows[0].Point)
	assert.Equal(t, Point{Queues: 4, MaxRank: 40}, seq.Rows[5].Point)
}

func TestRun_EightQueuesInvertLessThanOne(t *testing.T) {
	// GIVEN uniform ranks, where a single FIFO queue inverts about half the packets
	cfg := &Config{
		Mode:         ModeSingle,
		QueueCounts:  []int{1, 8},
		MaxRanks:     []int{100},
		PacketCount:  5000,
		Iterations:   1,
		Distribution: workload.DistUniform,
		Seed:         1,
		Parallelism:  2,
	}
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	fifo := res.Rows[0].Stages[0].NormalizedMeanInversions
	sp := res.Rows[1].Stages[0].NormalizedMeanInversions
	assert.Less(t, sp, fifo)
}

func TestRun_Hierarchical_TwoStagesPerRow(t *testing.T) {
	cfg := &Config{
		Mode:              ModeHierarchical,
		QueueCounts:       []int{2},
		Stage2QueueCounts: []int{2, 4},
		MaxRanks:          []int{20},
		PacketCount:       300,
		Iterations:        1,
		Distribution:      workload.DistPoisson,
		Seed:              3,
		Parallelism:       1,
	}
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		require.Len(t, row.Stages, 2)
		assert.Equal(t, "stage1", row.Stages[0].Stage)
		assert.Equal(t, "stage2", row.Stages[1].Stage)
		assert.Equal(t, row.Stage2Queues, row.Stages[1].NumQueues)
	}
	// Stage 1 is identical across stage-2 sizes: same trace, same stage-1 queues.
	assert.Equal(t, res.Rows[0].Stages[0], res.Rows[1].Stages[0])
}

func TestRun_MalformedTraceFile_Aborts(t *testing.T) {
	path := writeFile(t, "bad.txt", "2, 5\n1.0 3\n")
	cfg := &Config{Mode: ModeSingle, QueueCounts: []int{2}, Iterations: 1, TracePath: path, Parallelism: 1}
	res, err := Run(context.Background(), cfg)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, sim.ErrMalformedTrace))
}

func TestRun_InvalidConfig_Aborts(t *testing.T) {
	_, err := Run(context.Background(), &Config{Mode: "bogus"})
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
}
