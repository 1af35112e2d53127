// Package history receives run lifecycle notifications. The execution
// core emits "run started" and "run completed"; it does not itself own
// persistence of run records.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Observer is notified at run boundaries.
type Observer interface {
	RunStarted(flowID, runID string)
	RunCompleted(flowID, runID string, runErr error)
}

// Multi fans one notification out to several observers.
type Multi []Observer

func (m Multi) RunStarted(flowID, runID string) {
	for _, o := range m {
		o.RunStarted(flowID, runID)
	}
}

func (m Multi) RunCompleted(flowID, runID string, runErr error) {
	for _, o := range m {
		o.RunCompleted(flowID, runID, runErr)
	}
}

// record is one JSONL history line.
type record struct {
	FlowID    string    `json:"flowId"`
	RunID     string    `json:"runId"`
	Event     string    `json:"event"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder appends run records to a JSONL file.
type Recorder struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to path.
func NewRecorder(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{path: path, logger: logger}
}

// RunStarted appends a started record.
func (r *Recorder) RunStarted(flowID, runID string) {
	r.append(record{FlowID: flowID, RunID: runID, Event: "started", Timestamp: time.Now().UTC()})
}

// RunCompleted appends a completed record, carrying the run error if any.
func (r *Recorder) RunCompleted(flowID, runID string, runErr error) {
	rec := record{FlowID: flowID, RunID: runID, Event: "completed", Timestamp: time.Now().UTC()}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	r.append(rec)
}

func (r *Recorder) append(rec record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.appendLocked(rec); err != nil {
		// History is advisory; a write failure never affects the run.
		r.logger.Warn("failed to record run history", "error", err)
	}
}

func (r *Recorder) appendLocked(rec record) error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer func() { _ = f.Close() }()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history record: %w", err)
	}
	return nil
}
