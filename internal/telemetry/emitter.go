// Package telemetry emits recall lifecycle events fire-and-forget: emission
// never blocks, fails, or delays the request it describes.
package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event is one recall lifecycle event.
type Event struct {
	Name     string // recall_started, recall_finished
	Query    string
	Strategy string
	Hits     int
	Dropped  int
	Duration time.Duration
	Err      string
}

// Emitter records recall events.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// NopEmitter drops every event.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(context.Context, Event) {}

// LogEmitter writes events to the log from a background goroutine, dropping
// events when the buffer is full.
type LogEmitter struct {
	events chan Event
	logger *zap.Logger
}

// NewLogEmitter creates a log-backed emitter with the given buffer size.
func NewLogEmitter(logger *zap.Logger, buffer int) *LogEmitter {
	if buffer <= 0 {
		buffer = 64
	}
	e := &LogEmitter{
		events: make(chan Event, buffer),
		logger: logger,
	}
	go e.drain()
	return e
}

// Emit queues the event, dropping it if the buffer is full.
func (e *LogEmitter) Emit(_ context.Context, ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

func (e *LogEmitter) drain() {
	for ev := range e.events {
		e.logger.Info("recall_event",
			zap.String("event", ev.Name),
			zap.String("query", ev.Query),
			zap.String("strategy", ev.Strategy),
			zap.Int("hits", ev.Hits),
			zap.Int("dropped", ev.Dropped),
			zap.Duration("duration", ev.Duration),
			zap.String("error", ev.Err),
		)
	}
}
