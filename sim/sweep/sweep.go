package sweep

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pifo-sim/pifo-sim/sim"
	"github.com/pifo-sim/pifo-sim/sim/workload"
)

// Point is one configuration of the sweep grid.
type Point struct {
	Queues       int
	Stage2Queues int // 0 in single mode
	MaxRank      int
}

// Row is the folded outcome of one Point.
type Row struct {
	Point
	PacketCount int
	// Stages holds the folded metrics, stage 1 first.
	Stages []sim.StageMetrics
	// StdDevs[i] is the population standard deviation of stage i's
	// normalized inversions across iterations.
	StdDevs []float64
}

// Result is a completed sweep.
type Result struct {
	Mode string
	Rows []Row
}

// Points enumerates the grid in output order: queue counts outermost, then
// stage-2 queue counts, then max ranks.
func Points(cfg *Config, maxRanks []int) []Point {
	stage2 := cfg.Stage2QueueCounts
	if cfg.Mode != ModeHierarchical {
		stage2 = []int{0}
	}
	var out []Point
	for _, q := range cfg.QueueCounts {
		for _, k := range stage2 {
			for _, mr := range maxRanks {
				out = append(out, Point{Queues: q, Stage2Queues: k, MaxRank: mr})
			}
		}
	}
	return out
}

// Run executes every Point cfg.Iterations times and folds the iterations.
// A trace file is replayed unchanged in every iteration; generated traces
// are seeded per (max rank, iteration) so every queue count sees the same
// packets. Any run failure aborts the sweep.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	traces, maxRanks, err := prepareTraces(cfg)
	if err != nil {
		return nil, err
	}

	points := Points(cfg, maxRanks)
	rows := make([]Row, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallelism)
	for i, pt := range points {
		g.Go(func() error {
			row, err := runPoint(gctx, cfg, pt, traces[pt.MaxRank])
			if err != nil {
				return fmt.Errorf("queues=%d stage2=%d max_rank=%d: %w", pt.Queues, pt.Stage2Queues, pt.MaxRank, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Result{Mode: cfg.Mode, Rows: rows}, nil
}

// prepareTraces returns the per-iteration traces keyed by max rank.
func prepareTraces(cfg *Config) (map[int][]*workload.Trace, []int, error) {
	traces := make(map[int][]*workload.Trace)
	if cfg.TracePath != "" {
		t, err := workload.LoadTrace(cfg.TracePath)
		if err != nil {
			return nil, nil, err
		}
		its := make([]*workload.Trace, cfg.Iterations)
		for i := range its {
			its[i] = t
		}
		traces[t.MaxRank] = its
		return traces, []int{t.MaxRank}, nil
	}

	key := sim.NewSimulationKey(cfg.Seed)
	for _, mr := range cfg.MaxRanks {
		if _, ok := traces[mr]; ok {
			continue
		}
		its := make([]*workload.Trace, cfg.Iterations)
		for i := range its {
			rng := sim.NewPartitionedRNG(key).RanksFor(i, mr)
			t, err := workload.Generate(workload.GenSpec{
				Distribution: cfg.Distribution,
				Packets:      cfg.PacketCount,
				MaxRank:      mr,
			}, rng)
			if err != nil {
				return nil, nil, err
			}
			its[i] = t
		}
		traces[mr] = its
	}
	return traces, cfg.MaxRanks, nil
}

func runPoint(ctx context.Context, cfg *Config, pt Point, traces []*workload.Trace) (Row, error) {
	perIteration := make([][]sim.StageMetrics, 0, len(traces))
	var normalized [][]float64
	for it, t := range traces {
		res, err := sim.Run(ctx, sim.RunConfig{
			NumQueues:    pt.Queues,
			Stage2Queues: pt.Stage2Queues,
			MaxRank:      pt.MaxRank,
		}, t.Packets)
		if err != nil {
			return Row{}, fmt.Errorf("iteration %d: %w", it, err)
		}
		ms := sim.CollectRun(res)
		perIteration = append(perIteration, ms)
		if normalized == nil {
			normalized = make([][]float64, len(ms))
		}
		for s, m := range ms {
			normalized[s] = append(normalized[s], m.NormalizedMeanInversions)
		}
		logrus.WithFields(logrus.Fields{
			"run_id":    res.RunID,
			"queues":    pt.Queues,
			"stage2":    pt.Stage2Queues,
			"max_rank":  pt.MaxRank,
			"iteration": it,
		}).Debug("iteration complete")
	}

	folded, err := sim.FoldIterations(perIteration)
	if err != nil {
		return Row{}, err
	}
	row := Row{Point: pt, PacketCount: len(traces[0].Packets), Stages: folded}
	for _, vals := range normalized {
		row.StdDevs = append(row.StdDevs, sim.CalculateStdDev(vals))
	}

	entry := logrus.WithFields(logrus.Fields{
		"queues":   pt.Queues,
		"max_rank": pt.MaxRank,
	})
	if pt.Stage2Queues > 0 {
		entry = entry.WithField("stage2_queues", pt.Stage2Queues)
	}
	for _, m := range folded {
		entry = entry.WithField(m.Stage, fmt.Sprintf("%.3f", m.NormalizedMeanInversions))
	}
	entry.Info("configuration complete")
	return row, nil
}
