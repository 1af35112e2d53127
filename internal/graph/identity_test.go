package graph

import (
	"testing"

	"github.com/flowviz-labs/flowviz/internal/flow"
)

func TestTopNodeID(t *testing.T) {
	withID := &flow.Bubble{VariableID: 42}
	if got := TopNodeID(withID, "key"); got != "42" {
		t.Errorf("expected variable id, got %q", got)
	}

	withoutID := &flow.Bubble{}
	if got := TopNodeID(withoutID, "key"); got != "key" {
		t.Errorf("expected map key fallback, got %q", got)
	}
}

func TestChildNodeID_FallbackChain(t *testing.T) {
	// Explicit unique id wins over everything.
	n := &flow.DependencyNode{UniqueID: "u-7", VariableID: 5, Name: "Fetch"}
	if got := ChildNodeID("2", n, []int{0}); got != "u-7" {
		t.Errorf("unique id should win, got %q", got)
	}

	// Positive variable id is next.
	n = &flow.DependencyNode{VariableID: 5, Name: "Fetch"}
	if got := ChildNodeID("2", n, []int{0}); got != "5" {
		t.Errorf("variable id should win, got %q", got)
	}

	// Negative (synthetic) variable id falls through to the composite.
	n = &flow.DependencyNode{VariableID: -3, Name: "Fetch Data"}
	got := ChildNodeID("2", n, []int{1, 0})
	want := "2.fetch-data.1.0"
	if got != want {
		t.Errorf("expected composite %q, got %q", want, got)
	}
}

func TestChildNodeID_Deterministic(t *testing.T) {
	n := &flow.DependencyNode{Name: "Step"}
	a := ChildNodeID("root", n, []int{0, 2})
	b := ChildNodeID("root", n, []int{0, 2})
	if a != b {
		t.Errorf("identity must be stable: %q vs %q", a, b)
	}

	c := ChildNodeID("root", n, []int{0, 3})
	if a == c {
		t.Error("distinct structural paths must yield distinct identities")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Fetch Data":  "fetch-data",
		"HTTP/2 call": "http-2-call",
		"":            "node",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
