// Package notify provides the change fan-out between a flow's execution
// state and its consumers (graph SSE pushes, CLI progress). Listeners
// receive a ping when state changed and re-read a fresh snapshot, so
// multiple mutations in quick succession coalesce into one refresh.
package notify

import "sync"

// Hub broadcasts change pings to all subscribed listeners.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives a ping whenever state
// changed. The caller must Unsubscribe when done.
func (h *Hub) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (h *Hub) Unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	delete(h.listeners, ch)
	h.mu.Unlock()
	close(ch)
}

// Ping notifies all listeners. Non-blocking: a listener whose channel
// already holds a pending ping will catch up on its next read.
func (h *Hub) Ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
