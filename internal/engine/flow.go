package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flowviz-labs/flowviz/internal/editor"
	"github.com/flowviz-labs/flowviz/internal/flow"
	"github.com/flowviz-labs/flowviz/internal/graph"
	"github.com/flowviz-labs/flowviz/internal/state"
	"github.com/flowviz-labs/flowviz/internal/stream"
)

// Flow is one open flow: its source, current bubble map, execution
// state, and the transient visibility/position state of its graph view.
type Flow struct {
	id     string
	logger *slog.Logger
	engine *Engine

	source *editor.Source
	st     *state.State
	vis    *graph.Visibility

	mu            sync.RWMutex
	bubbles       flow.BubbleMap
	requiredCreds map[string][]string
	dirty         bool
	overrides     map[string]graph.Position
	rendered      *graph.Graph
}

// Open loads the flow program at sourcePath and validates it once to
// build the initial bubble map.
func (e *Engine) Open(ctx context.Context, flowID, sourcePath string) (*Flow, error) {
	src, err := editor.Open(sourcePath, e.logger)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		id:        flowID,
		logger:    e.logger.With("flow", flowID),
		engine:    e,
		source:    src,
		st:        e.states.Get(flowID),
		vis:       graph.NewVisibility(),
		bubbles:   flow.BubbleMap{},
		overrides: make(map[string]graph.Position),
		dirty:     true,
	}

	// A bubble_parameters_update event means the map was superseded out
	// of band; mark the source dirty so the next run revalidates.
	f.st.OnMapStale(func() {
		f.MarkDirty()
	})
	f.st.OnHighlightLine(func(line int) {
		src.HighlightLines(line, line)
	})

	if err := f.Validate(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.flows[flowID] = f
	e.mu.Unlock()
	return f, nil
}

// ID returns the flow identity.
func (f *Flow) ID() string { return f.id }

// Source returns the program source collaborator.
func (f *Flow) Source() *editor.Source { return f.source }

// State returns the flow's execution state.
func (f *Flow) State() *state.State { return f.st }

// Bubbles returns the current bubble map.
func (f *Flow) Bubbles() flow.BubbleMap {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bubbles
}

// RequiredCredentials returns the per-step credential requirements from
// the last validation.
func (f *Flow) RequiredCredentials() map[string][]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.requiredCreds
}

// MarkDirty records that the source changed since the last validation.
func (f *Flow) MarkDirty() {
	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
	f.st.Hub().Ping()
}

// Validate refreshes the bubble map from the validation service. The
// map is replaced wholesale; execution state keeps folding against the
// new identity index.
func (f *Flow) Validate(ctx context.Context) error {
	result, err := f.engine.validator.Validate(ctx, f.source.Code())
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("flow %s failed validation: %v", f.id, result.Errors)
	}

	f.mu.Lock()
	f.bubbles = result.Bubbles
	f.requiredCreds = result.RequiredCredentials
	f.dirty = false
	f.mu.Unlock()

	f.st.SetBubbleMap(result.Bubbles)
	f.logger.Debug("bubble map refreshed", "bubbles", len(result.Bubbles))
	return nil
}

// Run executes the flow and consumes its event stream until a terminal
// event, transport failure, or cancellation. It blocks for the duration
// of the run; callers wanting a background run wrap it in a goroutine.
func (f *Flow) Run(ctx context.Context) error {
	f.mu.RLock()
	dirty := f.dirty
	f.mu.RUnlock()
	if dirty {
		if err := f.Validate(ctx); err != nil {
			return err
		}
	}

	runCtx := f.st.StartExecution(ctx)
	f.vis.AutoExpandAll(f.Bubbles())
	f.engine.observers.RunStarted(f.id, f.st.RunID())

	req := stream.RunRequest{
		Inputs:      f.st.Inputs(),
		Credentials: f.st.Credentials(),
	}
	body, err := f.engine.exec.Execute(runCtx, f.id, req)
	if err != nil {
		// Transport failure before any frame: identical to a fatal
		// event with a generic message, still through the stop path.
		f.foldTransportFailure(err)
		f.engine.observers.RunCompleted(f.id, f.st.RunID(), err)
		return err
	}

	consumeErr := f.engine.runner.Consume(runCtx, body, f.st)

	runErr := consumeErr
	if runErr == nil {
		if msg := f.st.Snapshot().ExecError; msg != "" {
			runErr = errors.New(msg)
		}
	}
	f.engine.observers.RunCompleted(f.id, f.st.RunID(), runErr)
	return consumeErr
}

// Cancel aborts the in-flight run. Silent: the store still reaches its
// stopped state, but no error is surfaced.
func (f *Flow) Cancel() {
	f.st.Cancel()
}

func (f *Flow) foldTransportFailure(err error) {
	var statusErr *stream.StatusError
	msg := "could not reach execution service"
	if errors.As(err, &statusErr) {
		msg = statusErr.Error()
	}
	f.st.AddEvent(fatalEvent(msg))
	f.st.StopExecution()
}

// Highlight selects a bubble by variable id, nil to clear.
func (f *Flow) Highlight(variableID *int) {
	f.st.HighlightBubble(variableID)
}

// MoveNode records a user-dragged position override for a node. The
// materializer consults overrides before computing a default position.
func (f *Flow) MoveNode(nodeID string, pos graph.Position) {
	f.mu.Lock()
	f.overrides[nodeID] = pos
	f.mu.Unlock()
	f.st.Hub().Ping()
}

// ToggleRoot expands or collapses a root's nested sub-tree based on its
// current rendered state.
func (f *Flow) ToggleRoot(nodeID string) {
	f.mu.RLock()
	rendered := f.rendered
	f.mu.RUnlock()

	revealed := false
	if rendered != nil {
		if n, ok := rendered.FindNode(nodeID); ok {
			revealed = n.Data.Revealed
		}
	}
	f.vis.Toggle(nodeID, revealed)
	f.st.Hub().Ping()
}

// Graph recomputes the materialized graph and reconciles it against the
// previously rendered one, preserving positions for unchanged nodes.
func (f *Flow) Graph() *graph.Graph {
	f.mu.Lock()
	defer f.mu.Unlock()

	overrides := make(map[string]graph.Position, len(f.overrides))
	for id, pos := range f.overrides {
		overrides[id] = pos
	}

	next := graph.Materialize(f.bubbles, f.st.Snapshot(), f.vis, overrides)
	merged := graph.Reconcile(f.rendered, next, true)
	f.rendered = merged
	return merged
}
