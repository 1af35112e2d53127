package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowviz-labs/flowviz/internal/event"
	"github.com/flowviz-labs/flowviz/internal/flow"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

// testMap builds a bubble map with two top-level bubbles and one nested
// dependency: A (id 1, line 1), B (id 2, line 5) depending on C (id 3).
func testMap() flow.BubbleMap {
	return flow.BubbleMap{
		"a": {VariableID: 1, VariableName: "A", BubbleName: "http", Location: flow.Location{StartLine: 1, EndLine: 3}},
		"b": {
			VariableID:   2,
			VariableName: "B",
			BubbleName:   "agent",
			Location:     flow.Location{StartLine: 5, EndLine: 9},
			DepGraph: &flow.DependencyNode{
				VariableID: 2,
				Name:       "B",
				Deps: []*flow.DependencyNode{
					{VariableID: 3, Name: "C", BubbleName: "tool"},
				},
			},
		},
	}
}

func newTestState(t *testing.T) *State {
	t.Helper()
	st := New("test-flow", nil)
	st.SetBubbleMap(testMap())
	st.StartExecution(context.Background())
	return st
}

func TestState_FoldRunAndComplete(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeStart})
	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})

	snap := st.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Contains(t, snap.Running, 1)

	st.AddEvent(&event.Event{Type: event.TypeBubbleComplete, VariableID: intp(1), ExecutionTime: floatp(120)})

	snap = st.Snapshot()
	assert.NotContains(t, snap.Running, 1)
	assert.Equal(t, 120.0, snap.Completed[1])
	assert.True(t, snap.Passed[1])
}

func TestState_RunningAndCompletedDisjoint(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})
	st.AddEvent(&event.Event{Type: event.TypeBubbleComplete, VariableID: intp(1), ExecutionTime: floatp(10)})
	// The same bubble runs again within the run.
	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})

	snap := st.Snapshot()
	assert.Contains(t, snap.Running, 1)
	assert.NotContains(t, snap.Completed, 1)
}

func TestState_FatalFallbackToLastExecuting(t *testing.T) {
	// A fatal without an id implicates the bubble that was executing
	// most recently, even if it already completed.
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeStart})
	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})
	st.AddEvent(&event.Event{Type: event.TypeBubbleComplete, VariableID: intp(1), ExecutionTime: floatp(120)})
	st.AddEvent(&event.Event{Type: event.TypeFatal, Message: "boom"})

	snap := st.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 120.0, snap.Completed[1])
	require.NotNil(t, snap.ErrorBubble)
	assert.Equal(t, 1, *snap.ErrorBubble)
	assert.Equal(t, "boom", snap.ExecError)
}

func TestState_FatalExplicitIDWins(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})
	st.AddEvent(&event.Event{Type: event.TypeFatal, VariableID: intp(2), Message: "boom"})

	snap := st.Snapshot()
	require.NotNil(t, snap.ErrorBubble)
	assert.Equal(t, 2, *snap.ErrorBubble)
}

func TestState_AtMostOneErrorBubble(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})
	st.AddEvent(&event.Event{Type: event.TypeBubbleComplete, VariableID: intp(1),
		AdditionalData: map[string]any{"result": map[string]any{"success": false}}})
	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(2)})
	st.AddEvent(&event.Event{Type: event.TypeFatal, Message: "boom"})

	snap := st.Snapshot()
	require.NotNil(t, snap.ErrorBubble)
	assert.Equal(t, 2, *snap.ErrorBubble)
}

func TestState_NonFatalErrorKeepsRunning(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeError, Message: "transient"})

	snap := st.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, "transient", snap.ExecError)
	assert.Nil(t, snap.ErrorBubble)
}

func TestState_UnknownIdentityIsLoggedNotFolded(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(99)})

	snap := st.Snapshot()
	assert.Empty(t, snap.Running)
	// The event still lands in the log for the diagnostics tab.
	assert.Len(t, st.Events(), 1)
}

func TestState_FoldMonotonicity(t *testing.T) {
	// Replaying a fixed sequence from a fresh start yields the same
	// final state.
	sequence := []*event.Event{
		{Type: event.TypeStart},
		{Type: event.TypeBubbleExecution, VariableID: intp(1)},
		{Type: event.TypeBubbleComplete, VariableID: intp(1), ExecutionTime: floatp(50)},
		{Type: event.TypeBubbleExecution, VariableID: intp(2)},
		{Type: event.TypeFatal, Message: "boom"},
	}

	st := newTestState(t)
	for _, ev := range sequence {
		st.AddEvent(ev)
	}
	first := st.Snapshot()

	st.StartExecution(context.Background())
	for _, ev := range sequence {
		st.AddEvent(ev)
	}
	second := st.Snapshot()

	assert.Equal(t, first.IsRunning, second.IsRunning)
	assert.Equal(t, first.Running, second.Running)
	assert.Equal(t, first.Completed, second.Completed)
	require.NotNil(t, second.ErrorBubble)
	assert.Equal(t, *first.ErrorBubble, *second.ErrorBubble)
}

func TestState_DuplicateTerminalIdempotent(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeExecutionComplete})
	snap1 := st.Snapshot()
	st.AddEvent(&event.Event{Type: event.TypeExecutionComplete})
	snap2 := st.Snapshot()

	assert.Equal(t, snap1.IsRunning, snap2.IsRunning)
	assert.Equal(t, snap1.Completed, snap2.Completed)
}

func TestState_StartExecutionResets(t *testing.T) {
	st := newTestState(t)

	st.HighlightBubble(intp(1))
	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})
	st.AddEvent(&event.Event{Type: event.TypeFatal, Message: "boom"})

	st.StartExecution(context.Background())

	snap := st.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Empty(t, snap.Running)
	assert.Empty(t, snap.Completed)
	assert.Nil(t, snap.ErrorBubble)
	assert.Empty(t, snap.ExecError)
	// Highlight selection survives run boundaries.
	require.NotNil(t, snap.Highlighted)
	assert.Equal(t, 1, *snap.Highlighted)
	assert.Empty(t, st.Events())
}

func TestState_RunContextCancelledOnStop(t *testing.T) {
	st := New("test-flow", nil)
	ctx := st.StartExecution(context.Background())

	st.StopExecution()

	require.Error(t, ctx.Err())
	assert.False(t, st.Snapshot().IsRunning)
}

func TestState_ParametersUpdateClearsHighlightAndRequestsRefresh(t *testing.T) {
	st := newTestState(t)
	st.HighlightBubble(intp(1))

	refreshed := false
	st.OnMapStale(func() { refreshed = true })

	st.AddEvent(&event.Event{Type: event.TypeParametersUpdate})

	assert.True(t, refreshed)
	assert.Nil(t, st.Snapshot().Highlighted)
}

func TestState_CompleteWithFailureMarksError(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeFunctionCallStart, VariableID: intp(3)})
	st.AddEvent(&event.Event{Type: event.TypeFunctionCallDone, VariableID: intp(3), ExecutionTime: floatp(7),
		AdditionalData: map[string]any{"result": map[string]any{"success": false}}})

	snap := st.Snapshot()
	assert.False(t, snap.Passed[3])
	require.NotNil(t, snap.ErrorBubble)
	assert.Equal(t, 3, *snap.ErrorBubble)
}

func TestState_Stats(t *testing.T) {
	st := newTestState(t)

	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})
	st.AddEvent(&event.Event{Type: event.TypeBubbleComplete, VariableID: intp(1), ExecutionTime: floatp(100)})
	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(2)})
	st.AddEvent(&event.Event{Type: event.TypeBubbleComplete, VariableID: intp(2), ExecutionTime: floatp(300),
		AdditionalData: map[string]any{"result": map[string]any{"success": false}}})

	stats := st.Stats()
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 400.0, stats.TotalMS)
	assert.Equal(t, 100.0, stats.MinMS)
	assert.Equal(t, 300.0, stats.MaxMS)
	assert.Equal(t, 200.0, stats.MeanMS)
}

func TestRegistry_LazyCreateAndRelease(t *testing.T) {
	reg := NewRegistry(nil)

	a := reg.Get("flow-a")
	b := reg.Get("flow-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, reg.Get("flow-a"))
	assert.Equal(t, []string{"flow-a", "flow-b"}, reg.FlowIDs())

	ctx := a.StartExecution(context.Background())
	reg.Release("flow-a")

	assert.Error(t, ctx.Err())
	assert.Equal(t, []string{"flow-b"}, reg.FlowIDs())

	// Re-referencing after release creates a fresh state.
	assert.NotSame(t, a, reg.Get("flow-a"))
}

func TestState_NotifierPingsOnFold(t *testing.T) {
	st := newTestState(t)

	ch := st.Hub().Subscribe()
	defer st.Hub().Unsubscribe(ch)

	st.AddEvent(&event.Event{Type: event.TypeBubbleExecution, VariableID: intp(1)})

	select {
	case <-ch:
	default:
		t.Fatal("expected a change ping after fold")
	}
}
