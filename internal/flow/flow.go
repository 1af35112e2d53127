// Package flow defines the data model for flow programs: bubbles (named
// executable steps), their parameters, source locations, and the recursive
// dependency structure a bubble may expand into at execution time.
package flow

import "sort"

// Param is a single named parameter of a bubble, in declaration order.
type Param struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Location is a source line range used for editor cross-highlighting.
type Location struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// DependencyNode is one node of a bubble's nested dependency tree.
// Trees can nest arbitrarily deep; each level carries its own identity
// and further dependencies.
type DependencyNode struct {
	// UniqueID is an explicit identity carried by the server, if any.
	UniqueID string `json:"uniqueId,omitempty"`
	// VariableID is the stable integer identity when known, zero or
	// negative when synthetic.
	VariableID int               `json:"variableId,omitempty"`
	Name       string            `json:"name"`
	BubbleName string            `json:"bubbleName,omitempty"`
	Deps       []*DependencyNode `json:"dependencies,omitempty"`
}

// Bubble is a named, addressable unit of executable work within a flow.
type Bubble struct {
	// VariableID is the stable integer identity if known; synthetic
	// (negative) ids are assigned by the validation service otherwise.
	VariableID   int             `json:"variableId"`
	VariableName string          `json:"variableName"`
	BubbleName   string          `json:"bubbleName"`
	Params       []Param         `json:"parameters,omitempty"`
	Location     Location        `json:"location"`
	DepGraph     *DependencyNode `json:"dependencyGraph,omitempty"`
}

// HasDependents reports whether the bubble expands into a non-empty
// nested dependency tree.
func (b *Bubble) HasDependents() bool {
	return b.DepGraph != nil && len(b.DepGraph.Deps) > 0
}

// BubbleMap maps a stable key to a bubble. Insertion order carries no
// meaning; source-line order is used for sequencing.
type BubbleMap map[string]*Bubble

// SortedKeys returns map keys in ascending source-line order, with the
// key itself as tiebreak so the order is total and deterministic.
func (m BubbleMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m[keys[i]], m[keys[j]]
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine < b.Location.StartLine
		}
		return keys[i] < keys[j]
	})
	return keys
}
