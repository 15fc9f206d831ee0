package workload

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution names accepted by NewRankSampler.
const (
	DistUniform = "uniform"
	DistPoisson = "poisson"
)

var distAliases = map[string]string{
	"uniform": DistUniform,
	"unif":    DistUniform,
	"poisson": DistPoisson,
	"pois":    DistPoisson,
}

// RankSampler generates packet ranks.
type RankSampler interface {
	// Sample returns a rank in [1, MaxRank()].
	Sample(rng *rand.Rand) int
	MaxRank() int
}

// UniformSampler draws ranks uniformly from [1, maxRank].
type UniformSampler struct {
	maxRank int
}

func (s *UniformSampler) Sample(rng *rand.Rand) int {
	return rng.Intn(s.maxRank) + 1
}

func (s *UniformSampler) MaxRank() int { return s.maxRank }

// PoissonSampler draws Poisson(lambda) ranks with lambda = maxRank/2
// (integer division), redrawing until the value lies in [1, maxRank].
type PoissonSampler struct {
	lambda  float64
	maxRank int
}

func (s *PoissonSampler) Sample(rng *rand.Rand) int {
	// lambda is 0 only for maxRank 1, whose sole legal rank is 1.
	if s.lambda <= 0 {
		return 1
	}
	dist := distuv.Poisson{Lambda: s.lambda, Src: rng}
	for {
		rank := int(dist.Rand())
		if rank >= 1 && rank <= s.maxRank {
			return rank
		}
	}
}

func (s *PoissonSampler) MaxRank() int { return s.maxRank }

// NewRankSampler returns the sampler for the named distribution.
// Accepts "uniform" ("unif") and "poisson" ("pois").
func NewRankSampler(dist string, maxRank int) (RankSampler, error) {
	if maxRank < 1 {
		return nil, fmt.Errorf("max rank must be positive, got %d", maxRank)
	}
	switch distAliases[strings.ToLower(dist)] {
	case DistUniform:
		return &UniformSampler{maxRank: maxRank}, nil
	case DistPoisson:
		return &PoissonSampler{lambda: float64(maxRank / 2), maxRank: maxRank}, nil
	default:
		return nil, fmt.Errorf("unknown distribution %q; valid: %s", dist, strings.Join(ValidDistributions(), ", "))
	}
}

// IsValidDistribution reports whether NewRankSampler accepts dist.
func IsValidDistribution(dist string) bool {
	_, ok := distAliases[strings.ToLower(dist)]
	return ok
}

// ValidDistributions returns the accepted distribution names, aliases included, sorted.
func ValidDistributions() []string {
	names := make([]string, 0, len(distAliases))
	for name := range distAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
