package flow

import (
	"testing"
)

func TestBubbleMap_SortedKeys(t *testing.T) {
	m := BubbleMap{
		"c": {Location: Location{StartLine: 30}},
		"a": {Location: Location{StartLine: 10}},
		"b": {Location: Location{StartLine: 20}},
	}

	keys := m.SortedKeys()
	want := []string{"a", "b", "c"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("expected %v, got %v", want, keys)
			break
		}
	}
}

func TestBubbleMap_SortedKeys_Tiebreak(t *testing.T) {
	m := BubbleMap{
		"zz": {Location: Location{StartLine: 5}},
		"aa": {Location: Location{StartLine: 5}},
	}

	keys := m.SortedKeys()
	if keys[0] != "aa" || keys[1] != "zz" {
		t.Errorf("equal lines should tiebreak on key, got %v", keys)
	}
}

func TestBubble_HasDependents(t *testing.T) {
	b := &Bubble{}
	if b.HasDependents() {
		t.Error("bubble without a dependency graph has no dependents")
	}

	b.DepGraph = &DependencyNode{Name: "root"}
	if b.HasDependents() {
		t.Error("empty dependency list means no dependents")
	}

	b.DepGraph.Deps = []*DependencyNode{{Name: "child"}}
	if !b.HasDependents() {
		t.Error("expected dependents")
	}
}
