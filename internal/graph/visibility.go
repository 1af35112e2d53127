package graph

import (
	"sync"

	"github.com/flowviz-labs/flowviz/internal/flow"
)

// Visibility tracks which roots have their nested sub-tree revealed.
// Expanded roots were revealed by the user or by run-start auto-expand;
// suppressed roots were explicitly collapsed, which overrides
// auto-reveal. Visibility is ephemeral UI state: reset when execution
// starts, left untouched at natural completion so sub-trees stay visible
// without flicker.
type Visibility struct {
	mu         sync.RWMutex
	expanded   map[string]struct{}
	suppressed map[string]struct{}
}

// NewVisibility creates empty visibility state.
func NewVisibility() *Visibility {
	return &Visibility{
		expanded:   make(map[string]struct{}),
		suppressed: make(map[string]struct{}),
	}
}

// Expand reveals a root's sub-tree, clearing any explicit collapse.
func (v *Visibility) Expand(rootID string) {
	v.mu.Lock()
	v.expanded[rootID] = struct{}{}
	delete(v.suppressed, rootID)
	v.mu.Unlock()
}

// Collapse explicitly hides a root's sub-tree, overriding auto-reveal.
func (v *Visibility) Collapse(rootID string) {
	v.mu.Lock()
	delete(v.expanded, rootID)
	v.suppressed[rootID] = struct{}{}
	v.mu.Unlock()
}

// Toggle flips a root between revealed and collapsed, given whether its
// sub-tree is currently rendered.
func (v *Visibility) Toggle(rootID string, currentlyRevealed bool) {
	if currentlyRevealed {
		v.Collapse(rootID)
	} else {
		v.Expand(rootID)
	}
}

// AutoExpandAll reveals every root that has dependents. Called at run
// start so the whole execution is visible from the first event.
func (v *Visibility) AutoExpandAll(m flow.BubbleMap) {
	v.mu.Lock()
	v.expanded = make(map[string]struct{})
	v.suppressed = make(map[string]struct{})
	for key, b := range m {
		if b.HasDependents() {
			v.expanded[TopNodeID(b, key)] = struct{}{}
		}
	}
	v.mu.Unlock()
}

// snapshot returns copies of both sets for one materialization pass.
func (v *Visibility) snapshot() (expanded, suppressed map[string]struct{}) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	expanded = make(map[string]struct{}, len(v.expanded))
	for id := range v.expanded {
		expanded[id] = struct{}{}
	}
	suppressed = make(map[string]struct{}, len(v.suppressed))
	for id := range v.suppressed {
		suppressed[id] = struct{}{}
	}
	return expanded, suppressed
}
