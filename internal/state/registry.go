package state

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry hands out one execution state per flow id, created lazily and
// disposed when the flow is no longer referenced. It is owned by the
// application root and passed explicitly; there is no ambient global
// lookup. States of distinct flows are fully independent.
type Registry struct {
	mu     sync.RWMutex
	logger *slog.Logger
	flows  map[string]*State
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		flows:  make(map[string]*State),
	}
}

// Get returns the state for the flow, creating it on first reference.
func (r *Registry) Get(flowID string) *State {
	r.mu.RLock()
	st, ok := r.flows[flowID]
	r.mu.RUnlock()
	if ok {
		return st
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.flows[flowID]; ok {
		return st
	}
	st = New(flowID, r.logger.With("flow", flowID))
	r.flows[flowID] = st
	return st
}

// Release tears down the state for a flow that is no longer referenced,
// cancelling any in-flight run.
func (r *Registry) Release(flowID string) {
	r.mu.Lock()
	st, ok := r.flows[flowID]
	delete(r.flows, flowID)
	r.mu.Unlock()

	if ok {
		st.StopExecution()
	}
}

// FlowIDs lists the flows currently held, sorted for deterministic
// output.
func (r *Registry) FlowIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.flows))
	for id := range r.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
