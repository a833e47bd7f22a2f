package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// sinkDeadline bounds each sink call so one stuck sink cannot wedge
// shutdown behind a full queue.
const sinkDeadline = 5 * time.Second

// Dispatcher forwards events to a sink from a dedicated worker, keeping
// sink I/O off the login path. With DropIfFull a full queue sheds the
// newest event and counts it; without it Emit waits for queue space or
// caller cancellation (a cancelled wait counts as a drop too).
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu serializes intake against Close so no Emit can race the channel
	// close. Emitters share the read side; only Close takes it exclusively.
	mu     sync.RWMutex
	closed bool
	queue  chan Event

	dropped atomic.Uint64
	drained sync.WaitGroup
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, buffer),
	}
	d.drained.Add(1)
	go d.forward()
	return d
}

// forward runs until Close closes the queue, which guarantees every
// accepted event reaches the sink before Close returns.
func (d *Dispatcher) forward() {
	defer d.drained.Done()

	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sinkDeadline)
		d.sink.Emit(ctx, event)
		cancel()
	}
}

// Emit queues one event. After Close it is a silent no-op.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops intake, lets the worker drain everything already accepted,
// and waits for it. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.drained.Wait()
}

// Dropped reports how many events were shed because the queue was full
// (or the emitter gave up waiting).
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
