package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter writes one line per event to writer, either as key=value text
// or as JSONL. It is typically composed alongside the websocket sink so an
// operator can tail a session from the server's own stdout.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter returns a LogEmitter over writer (os.Stdout if nil).
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] session=%s ord=%d vertex=%s",
		event.Type, event.SessionID, event.Ordinal, event.VertexID)
	switch event.Type {
	case TypeTokenStream:
		_, _ = fmt.Fprintf(l.writer, " token=%q", event.Token)
	case TypeNodeUsage:
		_, _ = fmt.Fprintf(l.writer, " usage=%+v", event.Usage)
	case TypeNodeFinish:
		_, _ = fmt.Fprintf(l.writer, " result=%q", event.Result)
	case TypeNodeFailed, TypeExecutionError:
		_, _ = fmt.Fprintf(l.writer, " kind=%s error=%q", event.Kind, event.Error)
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes every event in order; it never partially fails since
// LogEmitter writes are synchronous and unbuffered.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogEmitter holds no buffer of its own.
func (l *LogEmitter) Flush(_ context.Context) error { return nil }
