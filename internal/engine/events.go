package engine

import (
	"time"

	"github.com/flowviz-labs/flowviz/internal/event"
)

// fatalEvent builds the synthetic fatal record folded for transport
// failures, so they take the same path as server-reported fatals.
func fatalEvent(msg string) *event.Event {
	return &event.Event{
		Type:      event.TypeFatal,
		Timestamp: time.Now(),
		Message:   msg,
	}
}
