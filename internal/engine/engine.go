// Package engine wires the execution core together: program source,
// validation, the streaming run client, per-flow execution state, and
// graph materialization/reconciliation. The Engine is owned by the
// application root and passed explicitly to every consumer.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/flowviz-labs/flowviz/internal/history"
	"github.com/flowviz-labs/flowviz/internal/state"
	"github.com/flowviz-labs/flowviz/internal/stream"
	"github.com/flowviz-labs/flowviz/internal/validate"
)

// Credential is one stored credential visible to the UI. The store is
// read-only from the execution core's perspective.
type Credential struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Config holds engine construction parameters.
type Config struct {
	ServerURL     string
	HeaderTimeout time.Duration
	Logger        *slog.Logger
	Observers     []history.Observer
	// Credentials maps credential type to the stored entries of that
	// type, as configured.
	Credentials map[string][]Credential
}

// Engine is the application-level execution core.
type Engine struct {
	logger    *slog.Logger
	states    *state.Registry
	exec      *stream.Client
	validator *validate.Client
	runner    *stream.Runner
	observers history.Multi
	creds     map[string][]Credential

	mu    sync.Mutex
	flows map[string]*Flow
}

// New creates an engine talking to the execution service at
// cfg.ServerURL.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.HeaderTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		logger:    logger,
		states:    state.NewRegistry(logger),
		exec:      stream.NewClient(cfg.ServerURL, timeout),
		validator: validate.NewClient(cfg.ServerURL, timeout),
		runner:    stream.NewRunner(logger),
		observers: history.Multi(cfg.Observers),
		creds:     cfg.Credentials,
		flows:     make(map[string]*Flow),
	}
}

// StoredCredentials returns the configured credentials for a type.
func (e *Engine) StoredCredentials(credType string) []Credential {
	return e.creds[credType]
}

// Flow returns the open flow with the given id, if any.
func (e *Engine) Flow(flowID string) (*Flow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.flows[flowID]
	return f, ok
}

// FlowIDs lists the currently open flows.
func (e *Engine) FlowIDs() []string {
	return e.states.FlowIDs()
}

// Close releases an open flow and tears down its execution state.
func (e *Engine) Close(flowID string) {
	e.mu.Lock()
	delete(e.flows, flowID)
	e.mu.Unlock()
	e.states.Release(flowID)
}
