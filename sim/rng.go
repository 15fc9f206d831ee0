package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible rank stream.
// Two generations with the same key and configuration produce identical traces.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemRanks is the RNG subsystem for rank generation.
// Uses the master seed directly so `gen --seed` matches iteration 0 of a sweep.
const SubsystemRanks = "ranks"

// SubsystemIteration returns the subsystem name for sweep iteration n and max rank.
// Iteration 0 maps to SubsystemRanks.
func SubsystemIteration(n, maxRank int) string {
	if n == 0 {
		return SubsystemRanks
	}
	return fmt.Sprintf("ranks_mr%d_it%d", maxRank, n)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemRanks: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	derivedSeed := int64(p.key)
	if name != SubsystemRanks {
		derivedSeed ^= fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// RanksFor returns the rank stream of one sweep iteration at one max rank.
// RanksFor(0, mr) is the master-seeded stream for every mr, so a single
// generated trace and iteration 0 of a sweep agree.
func (p *PartitionedRNG) RanksFor(iteration, maxRank int) *rand.Rand {
	return p.ForSubsystem(SubsystemIteration(iteration, maxRank))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
