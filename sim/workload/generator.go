package workload

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/pifo-sim/pifo-sim/sim"
)

// GenSpec describes a synthetic packet trace.
type GenSpec struct {
	Distribution string // see NewRankSampler
	Packets      int
	MaxRank      int
}

// Validate checks the generation parameters.
func (s GenSpec) Validate() error {
	if s.Packets < 1 {
		return fmt.Errorf("%w: packet count must be positive, got %d", sim.ErrInvalidConfiguration, s.Packets)
	}
	if s.MaxRank < 1 {
		return fmt.Errorf("%w: max rank must be positive, got %d", sim.ErrInvalidConfiguration, s.MaxRank)
	}
	if !IsValidDistribution(s.Distribution) {
		return fmt.Errorf("%w: unknown distribution %q", sim.ErrInvalidConfiguration, s.Distribution)
	}
	return nil
}

// Generate builds a trace of spec.Packets ranks drawn with rng.
// Packet ids are 1, 2, 3, ... so arrival order is recoverable from the file.
// Deterministic given the same spec and rng state.
func Generate(spec GenSpec, rng *rand.Rand) (*Trace, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	sampler, err := NewRankSampler(spec.Distribution, spec.MaxRank)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sim.ErrInvalidConfiguration, err)
	}
	t := &Trace{MaxRank: spec.MaxRank, Packets: make([]sim.Packet, spec.Packets)}
	for i := range t.Packets {
		t.Packets[i] = sim.Packet{Rank: sampler.Sample(rng), ID: float64(i + 1)}
	}
	return t, nil
}

// GenerateSeeded generates a trace from the rank subsystem of a seeded
// PartitionedRNG. Iteration 0 of a sweep with the same seed yields the same trace.
func GenerateSeeded(spec GenSpec, seed int64) (*Trace, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	return Generate(spec, rng.RanksFor(0, spec.MaxRank))
}

// Histogram is the rank frequency table of a trace.
type Histogram struct {
	MaxRank int
	Counts  []int64 // Counts[r-1] is the number of packets with rank r
	Mean    float64
	StdDev  float64
}

// NewHistogram tabulates the ranks of t.
func NewHistogram(t *Trace) Histogram {
	h := Histogram{MaxRank: t.MaxRank, Counts: make([]int64, t.MaxRank)}
	ranks := make([]float64, 0, len(t.Packets))
	for _, p := range t.Packets {
		if p.Rank >= 1 && p.Rank <= t.MaxRank {
			h.Counts[p.Rank-1]++
		}
		ranks = append(ranks, float64(p.Rank))
	}
	switch len(ranks) {
	case 0:
	case 1:
		h.Mean = ranks[0]
	default:
		h.Mean, h.StdDev = stat.MeanStdDev(ranks, nil)
	}
	return h
}

// WriteHistogram writes the raw ranks of t in trace order as a single line of
// space-separated values, each followed by a space.
func WriteHistogram(w io.Writer, t *Trace) error {
	bw := bufio.NewWriter(w)
	for _, r := range t.Ranks() {
		if _, err := fmt.Fprintf(bw, "%d ", r); err != nil {
			return fmt.Errorf("writing histogram: %w", err)
		}
	}
	if _, err := fmt.Fprintln(bw); err != nil {
		return fmt.Errorf("writing histogram: %w", err)
	}
	return bw.Flush()
}

// Total returns the number of tabulated packets.
func (h Histogram) Total() int64 {
	return int64(sim.Sum(h.Counts))
}
