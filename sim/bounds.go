// Implements the SP-PIFO admission algorithm for one scheduling stage.

package sim

import (
	"fmt"
	"strings"
)

// Admission is the outcome of admitting one packet.
type Admission struct {
	Queue     int  // bound and output queue index; N-1 is the highest priority
	Inversion bool // rank was below the top bound before admission
	Cost      int  // push-down applied to the lower bounds (0 if no inversion)
	PrevTop   int  // top bound just before admission
}

// BoundTracker owns the per-queue rank thresholds of one stage.
// bounds[0] belongs to the lowest-priority queue, bounds[N-1] to the highest.
//
// Thread-safety: NOT thread-safe. Exactly one goroutine admits into a tracker.
type BoundTracker struct {
	bounds []int
}

// NewBoundTracker creates a tracker for numQueues queues with all bounds at 0.
// Panics if numQueues < 1; callers validate configuration first.
func NewBoundTracker(numQueues int) *BoundTracker {
	if numQueues < 1 {
		panic(fmt.Sprintf("NewBoundTracker: numQueues must be >= 1, got %d", numQueues))
	}
	return &BoundTracker{bounds: make([]int, numQueues)}
}

// NumQueues returns the number of queues the tracker serves.
func (bt *BoundTracker) NumQueues() int {
	return len(bt.bounds)
}

// Bounds returns a copy of the current bounds.
func (bt *BoundTracker) Bounds() []int {
	out := make([]int, len(bt.bounds))
	copy(out, bt.bounds)
	return out
}

// Top returns the bound of the highest-priority queue.
func (bt *BoundTracker) Top() int {
	return bt.bounds[len(bt.bounds)-1]
}

// Admit places a packet of the given rank and updates the bounds.
//
// Push-up scans bounds from the lowest-priority queue upward and picks the
// first bound the rank satisfies; the top queue takes the packet if none does.
// The chosen bound becomes rank. If rank is below the top bound as it was
// before this packet, the admission is an inversion and every bound except
// the top is pushed down by (top - rank). Bounds are not floored at 0.
func (bt *BoundTracker) Admit(rank int) Admission {
	n := len(bt.bounds)
	top := n - 1
	prevTop := bt.bounds[top]

	selected := top
	for i := 0; i < n; i++ {
		if rank >= bt.bounds[i] || i == top {
			selected = i
			break
		}
	}
	bt.bounds[selected] = rank

	adm := Admission{Queue: selected, PrevTop: prevTop}

	if rank < prevTop {
		adm.Inversion = true
		adm.Cost = bt.bounds[top] - rank
		for i := 0; i < top; i++ {
			bt.bounds[i] -= adm.Cost
		}
	}
	return adm
}

func (bt *BoundTracker) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, b := range bt.bounds {
		fmt.Fprint(&sb, b)
		if i < len(bt.bounds)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
