package emit

import "testing"

func TestNullEmitterDiscardsEvents(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{Type: TypeNodeStart})
	if err := n.EmitBatch(nil, []Event{{Type: TypeNodeStart}}); err != nil {
		t.Fatalf("EmitBatch() error = %v", err)
	}
	if err := n.Flush(nil); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}
