// Package event defines the execution event records streamed by the
// workflow-execution service and their decode/classification helpers.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates execution events.
type Type string

// Event types emitted by the execution service, in strict temporal
// emission order within one run.
const (
	TypeStart              Type = "start"
	TypeBubbleExecution    Type = "bubble_execution"
	TypeBubbleComplete     Type = "bubble_execution_complete"
	TypeFunctionCallStart  Type = "function_call_start"
	TypeFunctionCallDone   Type = "function_call_complete"
	TypeParametersUpdate   Type = "bubble_parameters_update"
	TypeExecutionComplete  Type = "execution_complete"
	TypeStreamComplete     Type = "stream_complete"
	TypeError              Type = "error"
	TypeFatal              Type = "fatal"
	TypeLog                Type = "log"
	TypeInfo               Type = "info"
	TypeWarn               Type = "warn"
	TypeDebug              Type = "debug"
	TypeTrace              Type = "trace"
)

// Event is one immutable record of the execution stream. Events are
// append-only within a run; corrections arrive only as later, more
// specific events.
type Event struct {
	Type           Type           `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	VariableID     *int           `json:"variableId,omitempty"`
	LineNumber     *int           `json:"lineNumber,omitempty"`
	ExecutionTime  *float64       `json:"executionTime,omitempty"`
	Message        string         `json:"message,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

// Decode parses a single frame payload into an event record.
func Decode(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("decode event: missing type")
	}
	return &ev, nil
}

// IsTerminal reports whether the event ends a run.
func (e *Event) IsTerminal() bool {
	switch e.Type {
	case TypeExecutionComplete, TypeStreamComplete, TypeFatal:
		return true
	}
	return false
}

// IsLogLevel reports whether the event is a pure log line
// (no node-state semantics).
func (e *Event) IsLogLevel() bool {
	switch e.Type {
	case TypeLog, TypeInfo, TypeWarn, TypeDebug, TypeTrace:
		return true
	}
	return false
}

// Success inspects the embedded result payload for a success flag.
// Absent result or flag defaults to true.
func (e *Event) Success() bool {
	result, ok := e.AdditionalData["result"].(map[string]any)
	if !ok {
		return true
	}
	success, ok := result["success"].(bool)
	if !ok {
		return true
	}
	return success
}

// ElapsedMS returns the execution time in milliseconds, zero if absent.
func (e *Event) ElapsedMS() float64 {
	if e.ExecutionTime == nil {
		return 0
	}
	return *e.ExecutionTime
}
