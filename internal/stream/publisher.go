package stream

import (
	"context"
	"sync"

	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// EventWriter consumes ordered events. SSEWriter is the wire
// implementation; tests substitute an in-memory recorder.
type EventWriter interface {
	Write(ev Event) error
}

// Publisher decouples the engine from the wire: producers publish
// events into a bounded channel, a single consumer writes them out in
// arrival order. The stream ends exactly once, at the first terminal
// event; anything published after that is dropped.
type Publisher struct {
	ch   chan Event
	quit chan struct{}
	once sync.Once
	done chan struct{}
}

// NewPublisher creates a publisher with the given channel capacity.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Publisher{
		ch:   make(chan Event, buffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Publish enqueues one event. A terminal event latches the publisher
// shut after it is enqueued; later events are silently dropped so slow
// producers racing the terminal cannot corrupt the stream.
func (p *Publisher) Publish(name string, data interface{}) {
	select {
	case <-p.quit:
		return
	default:
	}

	ev := Event{Name: name, Data: data}
	select {
	case p.ch <- ev:
		if ev.Terminal() {
			p.shut()
		}
	case <-p.quit:
	}
}

// PublishError emits the terminal error event.
func (p *Publisher) PublishError(msg string) {
	p.Publish(models.EventError, models.ErrorPayload{Message: msg})
}

// Abort releases a publisher whose producer died before a terminal
// event. Safe to call more than once.
func (p *Publisher) Abort() { p.shut() }

func (p *Publisher) shut() {
	p.once.Do(func() { close(p.quit) })
}

// Run consumes events and writes them until the terminal event is
// delivered or the context is canceled. Buffered events ahead of the
// terminal are always written first. It returns the terminal event
// name, or empty when the stream ended without one.
func (p *Publisher) Run(ctx context.Context, w EventWriter) string {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			p.shut()
			return ""
		case ev := <-p.ch:
			if err := w.Write(ev); err != nil {
				logger.Warnf("Stream write failed on %s event: %v", ev.Name, err)
				p.shut()
				return ""
			}
			if ev.Terminal() {
				return ev.Name
			}
		case <-p.quit:
			// Aborted with nothing left to read.
			select {
			case ev := <-p.ch:
				if err := w.Write(ev); err != nil {
					return ""
				}
				if ev.Terminal() {
					return ev.Name
				}
			default:
				return ""
			}
		}
	}
}

// Done is closed once Run has returned.
func (p *Publisher) Done() <-chan struct{} { return p.done }
