// Implements the OutputQueue, the unbounded FIFO behind each priority level.
// A stage pushes into its queues; a dispatcher or a downstream stage pops.

package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// OutputQueue is an unbounded, goroutine-safe FIFO of items.
// It has one producer (the owning stage) and one consumer.
//
// Every push signals the queue's own ready channel and, if set, a wake
// channel shared with the other queues a dispatcher drains. Both channels
// have capacity 1 so a signal is never lost and pushes never block.
type OutputQueue struct {
	mu    sync.Mutex
	queue []Item
	ready chan struct{}
	wake  chan struct{}
}

// NewOutputQueue creates an empty queue. wake may be nil.
func NewOutputQueue(wake chan struct{}) *OutputQueue {
	return &OutputQueue{
		ready: make(chan struct{}, 1),
		wake:  wake,
	}
}

// Push appends an item to the back of the queue.
func (q *OutputQueue) Push(it Item) {
	q.mu.Lock()
	q.queue = append(q.queue, it)
	q.mu.Unlock()
	signal(q.ready)
	if q.wake != nil {
		signal(q.wake)
	}
}

// TryPop removes the front item. ok is false if the queue is empty.
func (q *OutputQueue) TryPop() (it Item, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return Item{}, false
	}
	it = q.queue[0]
	q.queue[0] = Item{}
	q.queue = q.queue[1:]
	return it, true
}

// Next blocks until an item is available or ctx is done.
// It makes OutputQueue a Source, which is how stage 2 reads stage 1's top queue.
func (q *OutputQueue) Next(ctx context.Context) (Item, error) {
	for {
		if it, ok := q.TryPop(); ok {
			return it, nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return Item{}, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (q *OutputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *OutputQueue) String() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// signal performs a non-blocking send on a capacity-1 channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
