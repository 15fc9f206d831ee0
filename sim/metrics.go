// Aggregates per-stage inversion counters into normalized summaries.
// Everything here is pure: results depend only on the arguments.

package sim

import "fmt"

// StageMetrics summarizes the inversions of one stage for one configuration.
type StageMetrics struct {
	Stage       string
	NumQueues   int
	MaxRank     int
	PacketCount int
	Iterations  int

	// MeanInversions is the total inversion count averaged over iterations.
	MeanInversions float64
	// NormalizedMeanInversions is MeanInversions / PacketCount.
	NormalizedMeanInversions float64
	// PerRank[r-1] is the mean inversion count at rank r.
	PerRank []float64
	// PerRankNormalized[r-1] is PerRank[r-1] / PacketCount.
	PerRankNormalized []float64
}

// Collect summarizes one stage's final stats over packetCount packets.
// Ranks outside [1, maxRank] are ignored; admission never records them.
func Collect(stage string, numQueues int, stats InversionStats, packetCount, maxRank int) StageMetrics {
	m := StageMetrics{
		Stage:          stage,
		NumQueues:      numQueues,
		MaxRank:        maxRank,
		PacketCount:    packetCount,
		Iterations:     1,
		MeanInversions: float64(stats.Total),
		PerRank:        make([]float64, maxRank),
	}
	for rank, count := range stats.PerRank {
		if rank >= 1 && rank <= maxRank {
			m.PerRank[rank-1] = float64(count)
		}
	}
	m.normalize()
	return m
}

// CollectRun summarizes every stage of a completed run, stage 1 first.
func CollectRun(res *RunResult) []StageMetrics {
	out := make([]StageMetrics, 0, len(res.Stages))
	for _, st := range res.Stages {
		out = append(out, Collect(st.Name, st.NumQueues, st.Stats, res.PacketCount, res.Config.MaxRank))
	}
	return out
}

// FoldIterations averages the metrics of repeated runs of one configuration.
// iterations[i] holds the per-stage metrics of iteration i; every iteration
// must describe the same stages in the same order.
func FoldIterations(iterations [][]StageMetrics) ([]StageMetrics, error) {
	if len(iterations) == 0 {
		return nil, fmt.Errorf("%w: no iterations to fold", ErrInvalidConfiguration)
	}
	first := iterations[0]
	out := make([]StageMetrics, len(first))
	for s, base := range first {
		acc := StageMetrics{
			Stage:       base.Stage,
			NumQueues:   base.NumQueues,
			MaxRank:     base.MaxRank,
			PacketCount: base.PacketCount,
			PerRank:     make([]float64, base.MaxRank),
		}
		totals := make([]float64, 0, len(iterations))
		for i, it := range iterations {
			if len(it) != len(first) {
				return nil, fmt.Errorf("%w: iteration %d has %d stages, want %d", ErrInvalidConfiguration, i, len(it), len(first))
			}
			m := it[s]
			if m.Stage != base.Stage || m.NumQueues != base.NumQueues || m.MaxRank != base.MaxRank || m.PacketCount != base.PacketCount {
				return nil, fmt.Errorf("%w: iteration %d stage %q does not match %q", ErrInvalidConfiguration, i, m.Stage, base.Stage)
			}
			acc.Iterations += m.Iterations
			totals = append(totals, m.MeanInversions*float64(m.Iterations))
			for r := range acc.PerRank {
				acc.PerRank[r] += m.PerRank[r] * float64(m.Iterations)
			}
		}
		acc.MeanInversions = Sum(totals) / float64(acc.Iterations)
		for r := range acc.PerRank {
			acc.PerRank[r] /= float64(acc.Iterations)
		}
		acc.normalize()
		out[s] = acc
	}
	return out, nil
}

// NormalizedMeanInversions divides an inversion total by the packet count.
// Returns 0 for a non-positive packet count.
func NormalizedMeanInversions(total float64, packetCount int) float64 {
	if packetCount <= 0 {
		return 0
	}
	return total / float64(packetCount)
}

func (m *StageMetrics) normalize() {
	m.NormalizedMeanInversions = NormalizedMeanInversions(m.MeanInversions, m.PacketCount)
	m.PerRankNormalized = make([]float64, len(m.PerRank))
	for i, v := range m.PerRank {
		m.PerRankNormalized[i] = NormalizedMeanInversions(v, m.PacketCount)
	}
}
