package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/flowviz-labs/flowviz/internal/event"
)

// Sink receives decoded events in emission order. The execution state
// store implements it; its StopExecution cleanup is guaranteed to run
// whether the stream ends with a terminal event, a transport failure, or
// client-initiated cancellation.
type Sink interface {
	AddEvent(*event.Event)
	StopExecution()
}

// Runner drives one execution's consumption loop: read next frame, fold
// it, stop on a terminal event. Reads are strictly sequential, so events
// reach the sink in server emission order.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a consumption-loop runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Consume decodes frames from body and folds them into sink until a
// terminal event, end of stream, cancellation, or transport failure.
// Transport failure mid-stream is folded as a fatal event with a generic
// message; cancellation is silent. The sink always reaches its stopped
// state before Consume returns.
func (r *Runner) Consume(ctx context.Context, body io.ReadCloser, sink Sink) error {
	defer func() { _ = body.Close() }()
	defer sink.StopExecution()

	dec := NewDecoder(body, r.logger)
	for {
		ev, err := dec.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				r.logger.Debug("stream cancelled by client")
				return nil
			}
			r.logger.Error("stream transport failure", "error", err)
			sink.AddEvent(&event.Event{
				Type:      event.TypeFatal,
				Timestamp: time.Now(),
				Message:   "connection to execution service lost",
			})
			return err
		}

		sink.AddEvent(ev)
		if ev.IsTerminal() {
			return nil
		}
	}
}
