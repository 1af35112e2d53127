package state

import (
	"github.com/flowviz-labs/flowviz/internal/event"
)

// AddEvent appends the record to the event log and folds it into node
// and run state. Folding never fails the run: unknown identities and
// log-level events append to the log but mutate no node state, and
// duplicate delivery of a terminal event is idempotent.
func (s *State) AddEvent(ev *event.Event) {
	var (
		mapStale      bool
		highlightLine int
	)

	s.mu.Lock()
	s.events = append(s.events, ev)

	switch ev.Type {
	case event.TypeStart:
		s.isRunning = true

	case event.TypeBubbleExecution, event.TypeFunctionCallStart:
		if id, ok := s.resolveLocked(ev); ok {
			s.running[id] = struct{}{}
			delete(s.completed, id)
			s.lastExecuting = &id
			if ev.LineNumber != nil && s.onHighlightLine != nil {
				highlightLine = *ev.LineNumber
			}
		}

	case event.TypeBubbleComplete, event.TypeFunctionCallDone:
		if id, ok := s.resolveLocked(ev); ok {
			delete(s.running, id)
			s.completed[id] = ev.ElapsedMS()
			success := ev.Success()
			s.passed[id] = success
			if !success {
				s.errorBubble = &id
			}
		}

	case event.TypeParametersUpdate:
		// The bubble map was superseded out of band; drop transient
		// highlight state and ask for a refresh from the source of
		// truth.
		s.highlighted = nil
		mapStale = s.onMapStale != nil

	case event.TypeExecutionComplete, event.TypeStreamComplete:
		s.isRunning = false

	case event.TypeFatal:
		s.execError = ev.Message
		s.isRunning = false
		// Explicit identity wins over the last-executing fallback.
		if ev.VariableID != nil {
			id := *ev.VariableID
			s.errorBubble = &id
		} else if s.lastExecuting != nil {
			id := *s.lastExecuting
			s.errorBubble = &id
		}

	case event.TypeError:
		// Non-fatal: surface the message, keep running.
		s.execError = ev.Message

	default:
		if !ev.IsLogLevel() {
			s.logger.Debug("ignoring event of unknown type", "type", ev.Type)
		}
	}

	onMapStale := s.onMapStale
	onHighlightLine := s.onHighlightLine
	s.mu.Unlock()

	if mapStale && onMapStale != nil {
		onMapStale()
	}
	if highlightLine > 0 && onHighlightLine != nil {
		onHighlightLine(highlightLine)
	}
	s.hub.Ping()
}

// resolveLocked maps an event to a known node identity. Events without
// an identity, or naming one outside the current bubble map, resolve to
// nothing; the caller skips node-state mutation.
func (s *State) resolveLocked(ev *event.Event) (int, bool) {
	if ev.VariableID == nil {
		return 0, false
	}
	id := *ev.VariableID
	if _, known := s.knownIDs[id]; !known {
		s.logger.Debug("event references unknown node", "variable_id", id, "type", ev.Type)
		return 0, false
	}
	return id, true
}
