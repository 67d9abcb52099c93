package operator

import (
	"testing"

	"github.com/dshills/flowgraph-engine/graph"
)

func TestConfigFloatAcceptsIntAndFloat(t *testing.T) {
	v := &graph.Vertex{Config: map[string]any{"a": 1, "b": 2.5}}
	a, err := configFloat(v, "a", 0)
	if err != nil || a != 1 {
		t.Errorf("configFloat(a) = (%v, %v), want (1, nil)", a, err)
	}
	b, err := configFloat(v, "b", 0)
	if err != nil || b != 2.5 {
		t.Errorf("configFloat(b) = (%v, %v), want (2.5, nil)", b, err)
	}
}

func TestConfigFloatMissingUsesDefault(t *testing.T) {
	v := &graph.Vertex{Config: map[string]any{}}
	got, err := configFloat(v, "missing", 7)
	if err != nil || got != 7 {
		t.Errorf("configFloat(missing) = (%v, %v), want (7, nil)", got, err)
	}
}

func TestRequireStringErrorsWhenAbsent(t *testing.T) {
	v := &graph.Vertex{ID: "x", Config: map[string]any{}}
	if _, err := requireString(v, "model"); err == nil {
		t.Error("expected an error for a required, absent key")
	}
}

func TestConfigStringSliceDecodesJSONArray(t *testing.T) {
	v := &graph.Vertex{Config: map[string]any{"models": []any{"m1", "m2"}}}
	got, err := configStringSlice(v, "models")
	if err != nil {
		t.Fatalf("configStringSlice() error = %v", err)
	}
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("got = %v, want [m1 m2]", got)
	}
}

func TestNormalizeAnswerCollapsesWhitespaceAndCase(t *testing.T) {
	if got := normalizeAnswer("  Hello   World  "); got != "hello world" {
		t.Errorf("normalizeAnswer() = %q, want %q", got, "hello world")
	}
}
