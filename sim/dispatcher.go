package sim

import (
	"context"
	"fmt"
)

// Dispatcher drains terminal output queues in strict priority order.
// queues[0] is drained first; a lower queue is served only while every
// queue before it is empty.
type Dispatcher struct {
	queues   []*OutputQueue
	wake     chan struct{}
	upstream []<-chan struct{}

	record     bool
	departures []Packet
	delivered  int64
}

// NewDispatcher creates a dispatcher over queues given highest priority first.
// wake must be the channel the queues signal on push.
func NewDispatcher(queues []*OutputQueue, wake chan struct{}) *Dispatcher {
	return &Dispatcher{queues: queues, wake: wake}
}

// WaitFor registers a stage whose completion must be observed before
// end-of-stream is honoured. Used for stage 2 of a hierarchy: its queues
// can still be filling when stage 1's end-of-stream becomes visible.
func (d *Dispatcher) WaitFor(done <-chan struct{}) {
	d.upstream = append(d.upstream, done)
}

// RecordDepartures keeps the departure order for later inspection.
func (d *Dispatcher) RecordDepartures() {
	d.record = true
}

// Run dispatches until end-of-stream is dequeued and every upstream stage
// has finished.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		it, ok := d.pop()
		if !ok {
			select {
			case <-d.wake:
			case <-ctx.Done():
				return actorErr("dispatcher", ctx.Err())
			}
			continue
		}

		switch it.Kind {
		case ItemData:
			d.deliver(it.Packet)
		case ItemEndOfStream:
			return actorErr("dispatcher", d.finish(ctx))
		default:
			return actorErr("dispatcher", fmt.Errorf("%w: %v reached the dispatcher", ErrProtocolViolation, it.Kind))
		}
	}
}

// finish waits for upstream stages, then drains whatever they left behind.
func (d *Dispatcher) finish(ctx context.Context) error {
	for _, done := range d.upstream {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for {
		it, ok := d.pop()
		if !ok {
			return nil
		}
		if !it.IsData() {
			return fmt.Errorf("%w: %v dequeued after end-of-stream", ErrProtocolViolation, it.Kind)
		}
		d.deliver(it.Packet)
	}
}

// pop takes the front item of the highest-priority non-empty queue.
func (d *Dispatcher) pop() (Item, bool) {
	for _, q := range d.queues {
		if it, ok := q.TryPop(); ok {
			return it, true
		}
	}
	return Item{}, false
}

func (d *Dispatcher) deliver(p Packet) {
	d.delivered++
	if d.record {
		d.departures = append(d.departures, p)
	}
}

// Delivered returns the number of real packets dispatched.
// Read only after Run has returned.
func (d *Dispatcher) Delivered() int64 {
	return d.delivered
}

// Departures returns the recorded departure order (nil unless recording).
// Read only after Run has returned.
func (d *Dispatcher) Departures() []Packet {
	return d.departures
}
