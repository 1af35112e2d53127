// Package state holds per-flow execution state: the fold target for
// streamed execution events plus the user-entered staging values and
// UI-selection state that live alongside a run. One State exists per
// flow id, long-lived across many runs; it is single-writer (the fold
// loop and UI actions), multi-reader (snapshot consumers).
package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/flowviz-labs/flowviz/internal/event"
	"github.com/flowviz-labs/flowviz/internal/flow"
	"github.com/flowviz-labs/flowviz/internal/notify"
)

// State is the execution state of one flow.
type State struct {
	mu     sync.RWMutex
	logger *slog.Logger

	flowID string
	runID  string

	isRunning     bool
	running       map[int]struct{}
	completed     map[int]float64
	passed        map[int]bool
	errorBubble   *int
	execError     string
	highlighted   *int
	lastExecuting *int

	pendingCredentials map[string]map[string]string
	executionInputs    map[string]any

	events []*event.Event

	// knownIDs indexes every variable id reachable from the current
	// bubble map, including nested dependency nodes. Events naming an
	// id outside this set are logged but fold to nothing.
	knownIDs map[int]struct{}

	cancel context.CancelFunc
	hub    *notify.Hub

	// onMapStale is invoked when a bubble_parameters_update event
	// signals the bubble map was superseded out of band.
	onMapStale func()
	// onHighlightLine forwards a source-line highlight request to the
	// editor surface.
	onHighlightLine func(line int)
}

// New creates the execution state for a flow.
func New(flowID string, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		logger:             logger,
		flowID:             flowID,
		running:            make(map[int]struct{}),
		completed:          make(map[int]float64),
		passed:             make(map[int]bool),
		pendingCredentials: make(map[string]map[string]string),
		executionInputs:    make(map[string]any),
		knownIDs:           make(map[int]struct{}),
		hub:                notify.NewHub(),
	}
}

// FlowID returns the flow identity this state belongs to.
func (s *State) FlowID() string { return s.flowID }

// Hub returns the change fan-out for this flow's consumers.
func (s *State) Hub() *notify.Hub { return s.hub }

// OnMapStale registers the bubble-map refresh callback.
func (s *State) OnMapStale(fn func()) {
	s.mu.Lock()
	s.onMapStale = fn
	s.mu.Unlock()
}

// OnHighlightLine registers the editor line-highlight callback.
func (s *State) OnHighlightLine(fn func(line int)) {
	s.mu.Lock()
	s.onHighlightLine = fn
	s.mu.Unlock()
}

// SetBubbleMap reindexes the set of node identities the fold will
// accept. Called whenever the map is replaced after validation.
func (s *State) SetBubbleMap(m flow.BubbleMap) {
	known := make(map[int]struct{})
	var walk func(n *flow.DependencyNode)
	walk = func(n *flow.DependencyNode) {
		if n == nil {
			return
		}
		if n.VariableID != 0 {
			known[n.VariableID] = struct{}{}
		}
		for _, dep := range n.Deps {
			walk(dep)
		}
	}
	for _, b := range m {
		if b.VariableID != 0 {
			known[b.VariableID] = struct{}{}
		}
		walk(b.DepGraph)
	}

	s.mu.Lock()
	s.knownIDs = known
	s.mu.Unlock()
	s.hub.Ping()
}

// StartExecution resets run-scoped state and returns the context that
// governs the new run. Highlight selection and staged inputs survive;
// running/completed/error sets and the event log do not.
func (s *State) StartExecution(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.runID = uuid.NewString()
	s.isRunning = true
	s.running = make(map[int]struct{})
	s.completed = make(map[int]float64)
	s.passed = make(map[int]bool)
	s.errorBubble = nil
	s.execError = ""
	s.lastExecuting = nil
	s.events = nil
	s.cancel = cancel
	runID := s.runID
	s.mu.Unlock()

	s.logger.Info("execution started", "flow", s.flowID, "run_id", runID)
	s.hub.Ping()
	return ctx
}

// StopExecution is the cleanup path shared by terminal events, transport
// failure, and client-initiated cancellation. Idempotent.
func (s *State) StopExecution() {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.isRunning = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	if wasRunning {
		s.logger.Info("execution stopped", "flow", s.flowID)
	}
	s.hub.Ping()
}

// Cancel aborts the in-flight run, if any. Silent: no error is surfaced
// when the client itself requested the stop.
func (s *State) Cancel() {
	s.StopExecution()
}

// RunID returns the identity of the current (or last) run.
func (s *State) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// HighlightBubble selects a node. Selection is independent of run state
// and persists across runs until explicitly cleared.
func (s *State) HighlightBubble(id *int) {
	s.mu.Lock()
	s.highlighted = id
	s.mu.Unlock()
	s.hub.Ping()
}

// ClearBubbleError clears the node-level error marker.
func (s *State) ClearBubbleError() {
	s.mu.Lock()
	s.errorBubble = nil
	s.mu.Unlock()
	s.hub.Ping()
}

// SetCredential stages a credential selection for a step. Never mutated
// by streamed events.
func (s *State) SetCredential(stepKey, credType, credID string) {
	s.mu.Lock()
	if s.pendingCredentials[stepKey] == nil {
		s.pendingCredentials[stepKey] = make(map[string]string)
	}
	s.pendingCredentials[stepKey][credType] = credID
	s.mu.Unlock()
	s.hub.Ping()
}

// SetInput stages an execution input value.
func (s *State) SetInput(name string, value any) {
	s.mu.Lock()
	s.executionInputs[name] = value
	s.mu.Unlock()
	s.hub.Ping()
}

// Credentials returns a copy of the staged credential selections.
func (s *State) Credentials() map[string]map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]string, len(s.pendingCredentials))
	for k, v := range s.pendingCredentials {
		inner := make(map[string]string, len(v))
		for ck, cv := range v {
			inner[ck] = cv
		}
		out[k] = inner
	}
	return out
}

// Inputs returns a copy of the staged execution inputs.
func (s *State) Inputs() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.executionInputs))
	for k, v := range s.executionInputs {
		out[k] = v
	}
	return out
}

// Events returns the event log of the current run, oldest first.
func (s *State) Events() []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*event.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Snapshot is an immutable copy of the fold-derived state, taken for
// graph materialization.
type Snapshot struct {
	IsRunning   bool
	Running     map[int]struct{}
	Completed   map[int]float64
	Passed      map[int]bool
	ErrorBubble *int
	ExecError   string
	Highlighted *int
}

// Snapshot returns a copy safe to read while folding continues.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		IsRunning: s.isRunning,
		Running:   make(map[int]struct{}, len(s.running)),
		Completed: make(map[int]float64, len(s.completed)),
		Passed:    make(map[int]bool, len(s.passed)),
		ExecError: s.execError,
	}
	for id := range s.running {
		snap.Running[id] = struct{}{}
	}
	for id, ms := range s.completed {
		snap.Completed[id] = ms
	}
	for id, ok := range s.passed {
		snap.Passed[id] = ok
	}
	if s.errorBubble != nil {
		id := *s.errorBubble
		snap.ErrorBubble = &id
	}
	if s.highlighted != nil {
		id := *s.highlighted
		snap.Highlighted = &id
	}
	return snap
}

// Stats are aggregate durations over the completed bubbles of a run,
// computed on demand.
type Stats struct {
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	TotalMS   float64 `json:"totalMs"`
	MinMS     float64 `json:"minMs"`
	MaxMS     float64 `json:"maxMs"`
	MeanMS    float64 `json:"meanMs"`
}

// Stats derives aggregate counts and durations from the completed set.
func (s *State) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Completed: len(s.completed)}
	first := true
	for id, ms := range s.completed {
		st.TotalMS += ms
		if first || ms < st.MinMS {
			st.MinMS = ms
		}
		if first || ms > st.MaxMS {
			st.MaxMS = ms
		}
		first = false
		if !s.passed[id] {
			st.Failed++
		}
	}
	if st.Completed > 0 {
		st.MeanMS = st.TotalMS / float64(st.Completed)
	}
	return st
}
