package events

import (
	"context"
	"sync/atomic"
)

// defaultBufferSize is the number of events a Bus holds before dropping.
const defaultBufferSize = 256

// Sink consumes relay events.
//
// Emit must not block for long; slow transports belong behind a Bus.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

// Fanout delivers each event to every sink in order.
type Fanout []Sink

// Emit implements Sink.
func (f Fanout) Emit(e Event) {
	for _, s := range f {
		s.Emit(e)
	}
}

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Bus decouples event producers from sinks.
//
// Emit never blocks: when the buffer is full the event is dropped and
// counted. Run drains the buffer into the sink until its context ends.
//
// Thread Safety: Emit is safe for concurrent use.
type Bus struct {
	ch      chan Event
	sink    Sink
	dropped atomic.Uint64
	logger  Logger
}

// NewBus creates a bus feeding sink. A non-positive size uses the default.
func NewBus(sink Sink, size int) *Bus {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Bus{
		ch:     make(chan Event, size),
		sink:   sink,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Emit queues e for delivery.
func (b *Bus) Emit(e Event) {
	select {
	case b.ch <- e:
	default:
		if n := b.dropped.Add(1); n == 1 || n%100 == 0 {
			b.logger.Warn("event buffer full, dropping events", "type", string(e.Type), "dropped", n)
		}
	}
}

// Dropped returns the number of events lost to a full buffer.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already buffered.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case e := <-b.ch:
			b.sink.Emit(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-b.ch:
					b.sink.Emit(e)
				default:
					return
				}
			}
		}
	}
}
