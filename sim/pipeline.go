// Runs one SP-PIFO simulation as a set of concurrent actors:
// generator -> admitter (one or two stages) -> dispatcher.

package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pifo-sim/pifo-sim/sim/trace"
)

// DefaultInputCapacity keeps the generator and the first stage in lockstep.
const DefaultInputCapacity = 1

// RunConfig describes one simulation run.
type RunConfig struct {
	NumQueues        int              // stage-1 queue count (the only stage when Stage2Queues == 0)
	Stage2Queues     int              // stage-2 queue count; 0 runs a single stage
	MaxRank          int              // ranks are in [1, MaxRank]
	InputCapacity    int              // input channel capacity; 0 means DefaultInputCapacity
	TraceLevel       trace.TraceLevel // admission decision tracing
	RecordDepartures bool             // keep the dispatcher's departure order
}

// Hierarchical reports whether the run uses two stages.
func (c RunConfig) Hierarchical() bool {
	return c.Stage2Queues > 0
}

// Validate checks the configuration before any actor starts.
func (c RunConfig) Validate() error {
	if c.NumQueues < 1 {
		return fmt.Errorf("%w: queue count must be positive, got %d", ErrInvalidConfiguration, c.NumQueues)
	}
	if c.Stage2Queues < 0 {
		return fmt.Errorf("%w: stage-2 queue count must be non-negative, got %d", ErrInvalidConfiguration, c.Stage2Queues)
	}
	if c.Hierarchical() && c.NumQueues < 2 {
		return fmt.Errorf("%w: hierarchical runs need at least 2 stage-1 queues, got %d", ErrInvalidConfiguration, c.NumQueues)
	}
	if c.MaxRank < 1 {
		return fmt.Errorf("%w: max rank must be positive, got %d", ErrInvalidConfiguration, c.MaxRank)
	}
	if c.InputCapacity < 0 {
		return fmt.Errorf("%w: input capacity must be non-negative, got %d", ErrInvalidConfiguration, c.InputCapacity)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("%w: unknown trace level %q", ErrInvalidConfiguration, c.TraceLevel)
	}
	return nil
}

// RunResult is handed back once every actor has returned.
type RunResult struct {
	RunID       string
	Config      RunConfig
	PacketCount int
	Stages      []StageResult // stage 1 first
	Delivered   int64         // real packets consumed by the dispatcher
	Departures  []Packet      // dispatcher order, if recorded
	Trace       *trace.SimulationTrace
	WallTime    time.Duration
}

// Stage returns the result of the named stage, or nil.
func (r *RunResult) Stage(name string) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// Run simulates one pass of packets through the configured topology.
// Any actor failure aborts the whole run; no partial result is returned.
func Run(ctx context.Context, cfg RunConfig, packets []Packet) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, fmt.Errorf("%w: packet count must be positive", ErrInvalidConfiguration)
	}
	capacity := cfg.InputCapacity
	if capacity == 0 {
		capacity = DefaultInputCapacity
	}

	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	wake := make(chan struct{}, 1)
	admitter, err := newAdmitter(cfg, wake, log)
	if err != nil {
		return nil, err
	}
	dispatcher := NewDispatcher(admitter.TerminalQueues(), wake)
	for _, b := range admitter.Barriers() {
		dispatcher.WaitFor(b)
	}
	if cfg.RecordDepartures {
		dispatcher.RecordDepartures()
	}

	log.WithFields(logrus.Fields{
		"queues":        cfg.NumQueues,
		"stage2_queues": cfg.Stage2Queues,
		"max_rank":      cfg.MaxRank,
		"packets":       len(packets),
	}).Debug("starting run")
	start := time.Now()

	in := make(chan Item, capacity)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return generate(gctx, packets, in)
	})
	g.Go(func() error {
		return admitter.Run(gctx, ChanSource(in))
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Debug("run aborted")
		return nil, err
	}

	res := &RunResult{
		RunID:       runID,
		Config:      cfg,
		PacketCount: len(packets),
		Stages:      admitter.Results(),
		Delivered:   dispatcher.Delivered(),
		Departures:  dispatcher.Departures(),
		Trace:       trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel}),
		WallTime:    time.Since(start),
	}
	for _, st := range res.Stages {
		res.Trace.Admissions = append(res.Trace.Admissions, st.Admissions...)
	}
	log.WithField("elapsed", res.WallTime).Debug("run complete")
	return res, nil
}

func newAdmitter(cfg RunConfig, wake chan struct{}, log *logrus.Entry) (Admitter, error) {
	if cfg.Hierarchical() {
		h, err := NewHierarchicalScheduler(cfg.NumQueues, cfg.Stage2Queues, cfg.MaxRank, cfg.TraceLevel, wake)
		if err != nil {
			return nil, err
		}
		return h.WithLogger(log), nil
	}
	s, err := NewScheduler(StageConfig{
		Name:       "stage1",
		NumQueues:  cfg.NumQueues,
		MaxRank:    cfg.MaxRank,
		Role:       RoleSingle,
		TraceLevel: cfg.TraceLevel,
	}, wake)
	if err != nil {
		return nil, err
	}
	return s.WithLogger(log), nil
}

// generate feeds every packet followed by end-of-stream, blocking on the
// bounded input channel.
func generate(ctx context.Context, packets []Packet, in chan<- Item) error {
	defer close(in)
	for _, p := range packets {
		select {
		case in <- Data(p):
		case <-ctx.Done():
			return actorErr("generator", ctx.Err())
		}
	}
	select {
	case in <- EndOfStream():
	case <-ctx.Done():
		return actorErr("generator", ctx.Err())
	}
	logrus.Debug("generator sent end-of-stream")
	return nil
}
