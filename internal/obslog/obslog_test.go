package obslog

import "testing"

func TestWithFieldsFormatsPairs(t *testing.T) {
	got := withFields("node failed", []any{"vertex", "v1", "kind", "model-timeout"})
	want := "node failed vertex=v1 kind=model-timeout"
	if got != want {
		t.Errorf("withFields() = %q, want %q", got, want)
	}
}

func TestWithFieldsNoPairsReturnsMessage(t *testing.T) {
	if got := withFields("ready", nil); got != "ready" {
		t.Errorf("withFields() = %q, want %q", got, "ready")
	}
}

func TestSetLevelDoesNotPanic(t *testing.T) {
	SetLevel("debug")
	Info("test message", "k", "v")
	Warn("test warning")
	Error("test error")
	Debugf("test %s", "debug")
	SetLevel("info")
}
