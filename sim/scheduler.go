package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pifo-sim/pifo-sim/sim/trace"
)

// Source yields the items a stage admits.
// Next blocks until an item is available, the source ends, or ctx is done.
type Source interface {
	Next(ctx context.Context) (Item, error)
}

// ChanSource adapts a receive-only channel to a Source.
// A closed channel yields ErrChannelClosedPrematurely: a well-behaved
// producer always sends its sentinel before closing.
type ChanSource <-chan Item

func (c ChanSource) Next(ctx context.Context) (Item, error) {
	select {
	case it, ok := <-c:
		if !ok {
			return Item{}, ErrChannelClosedPrematurely
		}
		return it, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

// StageRole selects how a stage handles sentinels.
type StageRole int

const (
	// RoleSingle is a standalone stage: it stops on end-of-stream and pushes
	// it onto its lowest-priority queue.
	RoleSingle StageRole = iota
	// RoleFeeder is stage 1 of a hierarchy: like RoleSingle, but it also
	// pushes end-of-stage onto its top queue, which stage 2 reads.
	RoleFeeder
	// RoleSecond is stage 2 of a hierarchy: it stops on end-of-stage and
	// forwards nothing.
	RoleSecond
)

func (r StageRole) String() string {
	switch r {
	case RoleSingle:
		return "single"
	case RoleFeeder:
		return "feeder"
	case RoleSecond:
		return "second"
	default:
		return fmt.Sprintf("StageRole(%d)", int(r))
	}
}

// StageConfig configures one scheduling stage.
type StageConfig struct {
	Name       string           // actor name used in logs and errors ("stage1", ...)
	NumQueues  int              // output queues (must be >= 1; >= 2 for RoleFeeder)
	MaxRank    int              // ranks outside [1, MaxRank] are rejected
	Role       StageRole        // sentinel handling
	TraceLevel trace.TraceLevel // "decisions" records every admission
}

// Validate checks the stage configuration.
func (c StageConfig) Validate() error {
	if c.NumQueues < 1 {
		return fmt.Errorf("%w: %s: queue count must be positive, got %d", ErrInvalidConfiguration, c.Name, c.NumQueues)
	}
	if c.Role == RoleFeeder && c.NumQueues < 2 {
		return fmt.Errorf("%w: %s: a feeding stage needs at least 2 queues, got %d", ErrInvalidConfiguration, c.Name, c.NumQueues)
	}
	if c.MaxRank < 1 {
		return fmt.Errorf("%w: %s: max rank must be positive, got %d", ErrInvalidConfiguration, c.Name, c.MaxRank)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("%w: %s: unknown trace level %q", ErrInvalidConfiguration, c.Name, c.TraceLevel)
	}
	return nil
}

// StageResult is what a stage hands back after its loop has exited.
type StageResult struct {
	Name        string
	NumQueues   int
	Stats       InversionStats
	Bounds      []int   // final bounds, index 0 = lowest priority
	QueueCounts []int64 // packets routed to each queue
	Admissions  []trace.AdmissionRecord
}

// Scheduler is one SP-PIFO stage: a BoundTracker plus its output queues.
// Run must be called from exactly one goroutine; Result may be read only
// after Run has returned.
type Scheduler struct {
	cfg         StageConfig
	tracker     *BoundTracker
	queues      []*OutputQueue
	stats       InversionStats
	queueCounts []int64
	trace       *trace.SimulationTrace
	log         *logrus.Entry
	seq         int64
}

// NewScheduler creates a stage. Every output queue signals wake on push;
// wake may be nil.
func NewScheduler(cfg StageConfig, wake chan struct{}) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:         cfg,
		tracker:     NewBoundTracker(cfg.NumQueues),
		queues:      make([]*OutputQueue, cfg.NumQueues),
		stats:       NewInversionStats(),
		queueCounts: make([]int64, cfg.NumQueues),
		trace:       trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel}),
		log:         logrus.WithField("stage", cfg.Name),
	}
	for i := range s.queues {
		s.queues[i] = NewOutputQueue(wake)
	}
	return s, nil
}

// WithLogger replaces the stage's log entry (e.g. to add a run id).
func (s *Scheduler) WithLogger(entry *logrus.Entry) *Scheduler {
	s.log = entry.WithField("stage", s.cfg.Name)
	return s
}

// Name returns the stage's actor name.
func (s *Scheduler) Name() string {
	return s.cfg.Name
}

// Queue returns output queue i (N-1 is the highest priority).
func (s *Scheduler) Queue(i int) *OutputQueue {
	return s.queues[i]
}

// NumQueues returns the stage's queue count.
func (s *Scheduler) NumQueues() int {
	return len(s.queues)
}

// Top returns the highest-priority output queue.
func (s *Scheduler) Top() *OutputQueue {
	return s.queues[len(s.queues)-1]
}

// Run admits items from src until the stage's terminating sentinel.
func (s *Scheduler) Run(ctx context.Context, src Source) error {
	s.log.Debugf("admission loop started with %d queues", len(s.queues))
	for {
		it, err := src.Next(ctx)
		if err != nil {
			return actorErr(s.cfg.Name, err)
		}

		switch it.Kind {
		case ItemData:
			if err := s.admit(it.Packet); err != nil {
				return actorErr(s.cfg.Name, err)
			}

		case ItemEndOfStream:
			if s.cfg.Role == RoleSecond {
				return actorErr(s.cfg.Name, fmt.Errorf("%w: end-of-stream reached stage 2", ErrProtocolViolation))
			}
			s.queues[0].Push(EndOfStream())
			if s.cfg.Role == RoleFeeder {
				s.Top().Push(EndOfStage())
			}
			s.finish()
			return nil

		case ItemEndOfStage:
			if s.cfg.Role != RoleSecond {
				return actorErr(s.cfg.Name, fmt.Errorf("%w: end-of-stage reached a %s stage", ErrProtocolViolation, s.cfg.Role))
			}
			s.finish()
			return nil

		default:
			return actorErr(s.cfg.Name, fmt.Errorf("%w: unknown item kind %v", ErrProtocolViolation, it.Kind))
		}
	}
}

func (s *Scheduler) admit(p Packet) error {
	if p.Rank < 1 || p.Rank > s.cfg.MaxRank {
		return fmt.Errorf("%w: rank %d outside [1, %d] (packet id %f)", ErrInvalidRank, p.Rank, s.cfg.MaxRank, p.ID)
	}
	adm := s.tracker.Admit(p.Rank)
	s.stats.Observe(p.Rank, adm)
	s.queueCounts[adm.Queue]++
	s.queues[adm.Queue].Push(Data(p))

	if s.trace.Config.Level == trace.TraceLevelDecisions {
		s.trace.RecordAdmission(trace.AdmissionRecord{
			Stage:     s.cfg.Name,
			Seq:       s.seq,
			PacketID:  p.ID,
			Rank:      p.Rank,
			Queue:     adm.Queue,
			Inversion: adm.Inversion,
			Cost:      adm.Cost,
			Bounds:    s.tracker.Bounds(),
		})
	}
	s.seq++
	return nil
}

func (s *Scheduler) finish() {
	s.log.WithFields(logrus.Fields{
		"packets":    s.stats.Packets,
		"inversions": s.stats.Total,
	}).Debugf("admission loop finished, bounds=%v", s.tracker)
}

// Result returns the stage's final state. Call only after Run has returned.
func (s *Scheduler) Result() StageResult {
	counts := make([]int64, len(s.queueCounts))
	copy(counts, s.queueCounts)
	return StageResult{
		Name:        s.cfg.Name,
		NumQueues:   len(s.queues),
		Stats:       s.stats.Clone(),
		Bounds:      s.tracker.Bounds(),
		QueueCounts: counts,
		Admissions:  s.trace.Admissions,
	}
}
