package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowviz-labs/flowviz/internal/event"
)

// recordingSink captures folded events and the stop call.
type recordingSink struct {
	events  []*event.Event
	stopped int
}

func (s *recordingSink) AddEvent(ev *event.Event) { s.events = append(s.events, ev) }
func (s *recordingSink) StopExecution()           { s.stopped++ }

// failingReader returns its data, then a non-EOF error.
type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestRunner_StopsOnTerminalEvent(t *testing.T) {
	body := io.NopCloser(strings.NewReader(
		"data: {\"type\":\"start\"}\n\n" +
			"data: {\"type\":\"execution_complete\"}\n\n" +
			"data: {\"type\":\"bubble_execution\",\"variableId\":9}\n\n",
	))
	sink := &recordingSink{}

	err := NewRunner(nil).Consume(context.Background(), body, sink)
	require.NoError(t, err)

	// Consumption stops at the terminal event; the trailing frame is
	// never folded.
	require.Len(t, sink.events, 2)
	assert.Equal(t, event.TypeExecutionComplete, sink.events[1].Type)
	assert.Equal(t, 1, sink.stopped)
}

func TestRunner_TransportFailureFoldsFatal(t *testing.T) {
	body := io.NopCloser(&failingReader{data: "data: {\"type\":\"start\"}\n\n"})
	sink := &recordingSink{}

	err := NewRunner(nil).Consume(context.Background(), body, sink)
	require.Error(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, event.TypeStart, sink.events[0].Type)
	assert.Equal(t, event.TypeFatal, sink.events[1].Type)
	assert.NotEmpty(t, sink.events[1].Message)
	assert.Equal(t, 1, sink.stopped)
}

func TestRunner_CancellationIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := io.NopCloser(strings.NewReader("data: {\"type\":\"start\"}\n\n"))
	sink := &recordingSink{}

	err := NewRunner(nil).Consume(ctx, body, sink)
	require.NoError(t, err)

	// No synthetic fatal on client-initiated cancel, but the stop
	// cleanup still runs.
	assert.Empty(t, sink.events)
	assert.Equal(t, 1, sink.stopped)
}

func TestRunner_EndOfStreamWithoutTerminal(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {\"type\":\"start\"}\n\n"))
	sink := &recordingSink{}

	err := NewRunner(nil).Consume(context.Background(), body, sink)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, 1, sink.stopped)
}
