package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/flowviz-labs/flowviz/internal/engine"
	"github.com/flowviz-labs/flowviz/internal/graph"
	"github.com/flowviz-labs/flowviz/internal/state"
)

const sessionName = "flowviz"

// Handlers provides the HTTP handlers of the live-graph UI.
type Handlers struct {
	engine       *engine.Engine
	flow         *engine.Flow
	sessionStore sessions.Store
	logger       *slog.Logger
}

// NewHandlers creates a Handlers instance bound to one open flow.
func NewHandlers(eng *engine.Engine, fl *engine.Flow, sessionStore sessions.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{engine: eng, flow: fl, sessionStore: sessionStore, logger: logger}
}

// SetupRoutes mounts all UI routes.
func (h *Handlers) SetupRoutes(r chi.Router) {
	r.Get("/", h.IndexPage)
	r.Get("/graph/updates", h.GraphUpdates)
	r.Post("/run", h.StartRun)
	r.Post("/cancel", h.CancelRun)
	r.Post("/highlight", h.Highlight)
	r.Post("/errors/clear", h.ClearError)
	r.Post("/nodes/{id}/toggle", h.ToggleNode)
	r.Post("/nodes/{id}/move", h.MoveNode)
	r.Post("/credentials", h.SetCredential)
	r.Post("/inputs", h.SetInput)
	r.Get("/events", h.EventLog)
	r.Get("/stats", h.Stats)
}

// graphView is the signal payload pushed to the browser on every state
// change.
type graphView struct {
	FlowID         string       `json:"flowId"`
	Graph          *graph.Graph `json:"graph"`
	Running        bool         `json:"running"`
	ExecutionError string       `json:"executionError,omitempty"`
	Stats          state.Stats  `json:"stats"`
	HighlightStart int          `json:"highlightStart,omitempty"`
	HighlightEnd   int          `json:"highlightEnd,omitempty"`
}

func (h *Handlers) buildView() graphView {
	snap := h.flow.State().Snapshot()
	start, end := h.flow.Source().HighlightedLines()
	return graphView{
		FlowID:         h.flow.ID(),
		Graph:          h.flow.Graph(),
		Running:        snap.IsRunning,
		ExecutionError: snap.ExecError,
		Stats:          h.flow.State().Stats(),
		HighlightStart: start,
		HighlightEnd:   end,
	}
}

// IndexPage serves the graph page shell and remembers the selected flow
// in the cookie session.
func (h *Handlers) IndexPage(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionStore.Get(r, sessionName)
	session.Values["flow"] = h.flow.ID()
	if err := session.Save(r, w); err != nil {
		h.logger.Debug("session save failed", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

// GraphUpdates is the long-lived SSE endpoint. It pushes the current
// reconciled graph immediately, then again on every change ping.
// Multiple mutations between pushes coalesce into one re-materialization
// pass.
func (h *Handlers) GraphUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.flow.State().Hub().Subscribe()
	defer h.flow.State().Hub().Unsubscribe(updates)

	if err := sse.MarshalAndPatchSignals(h.buildView()); err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.MarshalAndPatchSignals(h.buildView()); err != nil {
				_ = sse.ConsoleError(err)
				// Keep the stream open; the next ping retries.
			}
		}
	}
}

// StartRun launches an execution in the background.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.flow.Run(context.Background()); err != nil {
			h.logger.Error("run failed", "flow", h.flow.ID(), "error", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// CancelRun aborts the in-flight run.
func (h *Handlers) CancelRun(w http.ResponseWriter, _ *http.Request) {
	h.flow.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// Highlight selects (or clears) the highlighted bubble.
func (h *Handlers) Highlight(w http.ResponseWriter, r *http.Request) {
	var signals struct {
		VariableID *int `json:"variableId"`
	}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.flow.Highlight(signals.VariableID)
	w.WriteHeader(http.StatusNoContent)
}

// ClearError dismisses the node-level error marker.
func (h *Handlers) ClearError(w http.ResponseWriter, _ *http.Request) {
	h.flow.State().ClearBubbleError()
	w.WriteHeader(http.StatusNoContent)
}

// ToggleNode expands or collapses a root's nested sub-tree.
func (h *Handlers) ToggleNode(w http.ResponseWriter, r *http.Request) {
	h.flow.ToggleRoot(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// MoveNode records a dragged node position.
func (h *Handlers) MoveNode(w http.ResponseWriter, r *http.Request) {
	var signals struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.flow.MoveNode(chi.URLParam(r, "id"), graph.Position{X: signals.X, Y: signals.Y})
	w.WriteHeader(http.StatusNoContent)
}

// SetCredential stages a credential selection for a step.
func (h *Handlers) SetCredential(w http.ResponseWriter, r *http.Request) {
	var signals struct {
		StepKey string `json:"stepKey"`
		Type    string `json:"type"`
		ID      string `json:"id"`
	}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.flow.State().SetCredential(signals.StepKey, signals.Type, signals.ID)
	w.WriteHeader(http.StatusNoContent)
}

// SetInput stages an execution input value.
func (h *Handlers) SetInput(w http.ResponseWriter, r *http.Request) {
	var signals struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.flow.State().SetInput(signals.Name, signals.Value)
	w.WriteHeader(http.StatusNoContent)
}

// EventLog returns the current run's event log for the diagnostics tab.
func (h *Handlers) EventLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.flow.State().Events(), h.logger)
}

// Stats returns the aggregate run stats.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.flow.State().Stats(), h.logger)
}

func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response failed", "error", err)
	}
}
