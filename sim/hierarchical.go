package sim

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pifo-sim/pifo-sim/sim/trace"
)

// Admitter is a scheduling topology the pipeline can drive: a single stage
// or a two-stage hierarchy.
type Admitter interface {
	// Run admits from src until the topology's terminating sentinel.
	Run(ctx context.Context, src Source) error
	// TerminalQueues returns the queues the dispatcher drains, highest priority first.
	TerminalQueues() []*OutputQueue
	// Barriers returns channels closed when stages feeding terminal queues,
	// other than the first, have finished.
	Barriers() []<-chan struct{}
	// Results returns per-stage results. Call only after Run has returned.
	Results() []StageResult
}

// TerminalQueues returns all of a standalone stage's queues, highest priority first.
func (s *Scheduler) TerminalQueues() []*OutputQueue {
	out := make([]*OutputQueue, 0, len(s.queues))
	for i := len(s.queues) - 1; i >= 0; i-- {
		out = append(out, s.queues[i])
	}
	return out
}

// Barriers returns nil: a standalone stage pushes end-of-stream last.
func (s *Scheduler) Barriers() []<-chan struct{} {
	return nil
}

// Results returns the stage's result as a one-element slice.
func (s *Scheduler) Results() []StageResult {
	return []StageResult{s.Result()}
}

// HierarchicalScheduler chains two stages. Stage 1's top queue is the only
// input of stage 2; stage 1's other queues are terminal.
type HierarchicalScheduler struct {
	stage1     *Scheduler
	stage2     *Scheduler
	stage2Done chan struct{}
}

// NewHierarchicalScheduler creates stage 1 with stage1Queues queues and
// stage 2 with stage2Queues queues. stage1Queues must be at least 2 so
// end-of-stream has a terminal queue to ride on.
func NewHierarchicalScheduler(stage1Queues, stage2Queues, maxRank int, level trace.TraceLevel, wake chan struct{}) (*HierarchicalScheduler, error) {
	s1, err := NewScheduler(StageConfig{
		Name:       "stage1",
		NumQueues:  stage1Queues,
		MaxRank:    maxRank,
		Role:       RoleFeeder,
		TraceLevel: level,
	}, wake)
	if err != nil {
		return nil, err
	}
	s2, err := NewScheduler(StageConfig{
		Name:       "stage2",
		NumQueues:  stage2Queues,
		MaxRank:    maxRank,
		Role:       RoleSecond,
		TraceLevel: level,
	}, wake)
	if err != nil {
		return nil, err
	}
	return &HierarchicalScheduler{
		stage1:     s1,
		stage2:     s2,
		stage2Done: make(chan struct{}),
	}, nil
}

// WithLogger sets the log entry of both stages.
func (h *HierarchicalScheduler) WithLogger(entry *logrus.Entry) *HierarchicalScheduler {
	h.stage1.WithLogger(entry)
	h.stage2.WithLogger(entry)
	return h
}

// Run runs both stages concurrently. Stage 2 reads stage 1's top queue and
// stops on end-of-stage. Returns the first stage error.
func (h *HierarchicalScheduler) Run(ctx context.Context, src Source) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.stage1.Run(gctx, src)
	})
	g.Go(func() error {
		defer close(h.stage2Done)
		return h.stage2.Run(gctx, h.stage1.Top())
	})
	return g.Wait()
}

// TerminalQueues returns stage 2's queues, highest first, followed by stage 1's
// queues below its top queue, highest first.
func (h *HierarchicalScheduler) TerminalQueues() []*OutputQueue {
	out := h.stage2.TerminalQueues()
	for i := h.stage1.NumQueues() - 2; i >= 0; i-- {
		out = append(out, h.stage1.Queue(i))
	}
	return out
}

// Barriers returns stage 2's completion channel.
func (h *HierarchicalScheduler) Barriers() []<-chan struct{} {
	return []<-chan struct{}{h.stage2Done}
}

// Results returns stage 1's result followed by stage 2's. The two are
// reported separately; their inversion counts are not commensurate.
func (h *HierarchicalScheduler) Results() []StageResult {
	return []StageResult{h.stage1.Result(), h.stage2.Result()}
}
