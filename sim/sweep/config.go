// Package sweep runs the simulator over a grid of queue counts and max ranks
// and averages each configuration over repeated iterations.
package sweep

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pifo-sim/pifo-sim/sim"
	"github.com/pifo-sim/pifo-sim/sim/workload"
)

// Sweep modes.
const (
	ModeSingle       = "single"
	ModeHierarchical = "hierarchical"
)

// Config is the YAML sweep configuration.
type Config struct {
	Mode              string `yaml:"mode"`                // single or hierarchical
	QueueCounts       []int  `yaml:"queue_counts"`        // stage-1 (or only) queue counts
	Stage2QueueCounts []int  `yaml:"stage2_queue_counts"` // hierarchical only
	MaxRanks          []int  `yaml:"max_ranks"`           // ignored when TracePath is set
	PacketCount       int    `yaml:"packet_count"`        // generated packets per trace
	Iterations        int    `yaml:"iterations"`
	Distribution      string `yaml:"distribution"`
	Seed              int64  `yaml:"seed"`
	TracePath         string `yaml:"trace_path,omitempty"` // replay this trace instead of generating
	Parallelism       int    `yaml:"parallelism,omitempty"`
}

// defaultStage2QueueCounts is applied only to hierarchical configs.
var defaultStage2QueueCounts = []int{2, 4, 8, 16}

// DefaultConfig returns the single-stage grid used when a field is left out.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeSingle,
		QueueCounts:  []int{2, 4, 8, 16},
		MaxRanks:     []int{10, 20, 40, 80, 160, 320, 640, 1000},
		PacketCount:  100000,
		Iterations:   1,
		Distribution: workload.DistPoisson,
		Parallelism:  1,
	}
}

// ApplyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if len(c.QueueCounts) == 0 {
		c.QueueCounts = d.QueueCounts
	}
	if len(c.Stage2QueueCounts) == 0 && c.Mode == ModeHierarchical {
		c.Stage2QueueCounts = append([]int(nil), defaultStage2QueueCounts...)
	}
	if len(c.MaxRanks) == 0 && c.TracePath == "" {
		c.MaxRanks = d.MaxRanks
	}
	if c.PacketCount == 0 && c.TracePath == "" {
		c.PacketCount = d.PacketCount
	}
	if c.Iterations == 0 {
		c.Iterations = d.Iterations
	}
	if c.Distribution == "" {
		c.Distribution = d.Distribution
	}
	if c.Parallelism == 0 {
		c.Parallelism = d.Parallelism
	}
}

// LoadConfig reads a sweep configuration. Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sweep config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing sweep config: %v", sim.ErrInvalidConfiguration, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Validate checks the configuration. All errors wrap sim.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle:
		if len(c.Stage2QueueCounts) > 0 {
			return fmt.Errorf("%w: stage2_queue_counts requires mode %q", sim.ErrInvalidConfiguration, ModeHierarchical)
		}
	case ModeHierarchical:
		if len(c.Stage2QueueCounts) == 0 {
			return fmt.Errorf("%w: hierarchical mode needs stage2_queue_counts", sim.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q; valid: %s, %s", sim.ErrInvalidConfiguration, c.Mode, ModeSingle, ModeHierarchical)
	}
	if len(c.QueueCounts) == 0 {
		return fmt.Errorf("%w: queue_counts must not be empty", sim.ErrInvalidConfiguration)
	}
	minQueues := 1
	if c.Mode == ModeHierarchical {
		minQueues = 2
	}
	for _, n := range c.QueueCounts {
		if n < minQueues {
			return fmt.Errorf("%w: queue count %d below minimum %d for mode %q", sim.ErrInvalidConfiguration, n, minQueues, c.Mode)
		}
	}
	for _, k := range c.Stage2QueueCounts {
		if k < 1 {
			return fmt.Errorf("%w: stage-2 queue count must be positive, got %d", sim.ErrInvalidConfiguration, k)
		}
	}
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive, got %d", sim.ErrInvalidConfiguration, c.Iterations)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", sim.ErrInvalidConfiguration, c.Parallelism)
	}
	if c.TracePath != "" {
		return nil
	}
	if len(c.MaxRanks) == 0 {
		return fmt.Errorf("%w: max_ranks must not be empty without trace_path", sim.ErrInvalidConfiguration)
	}
	for _, mr := range c.MaxRanks {
		if mr < 1 {
			return fmt.Errorf("%w: max rank must be positive, got %d", sim.ErrInvalidConfiguration, mr)
		}
	}
	if c.PacketCount < 1 {
		return fmt.Errorf("%w: packet_count must be positive, got %d", sim.ErrInvalidConfiguration, c.PacketCount)
	}
	if !workload.IsValidDistribution(c.Distribution) {
		return fmt.Errorf("%w: unknown distribution %q", sim.ErrInvalidConfiguration, c.Distribution)
	}
	return nil
}
