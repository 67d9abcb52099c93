// Package obslog wraps github.com/kataras/golog behind a small
// package-level logger so the operator library, the session controller,
// and the server command log the same way without each importing golog
// directly.
package obslog

import (
	"fmt"

	"github.com/kataras/golog"
)

var logger = golog.Default

// SetLevel sets the minimum level that reaches output: "debug", "info",
// "warn", "error", or "disable".
func SetLevel(level string) {
	logger.SetLevel(level)
}

// Debugf logs a formatted debug-level message.
func Debugf(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// Info logs an info-level message built from key/value pairs, e.g.
// Info("node started", "vertex", v.ID, "kind", v.Kind).
func Info(msg string, kv ...any) {
	logger.Info(withFields(msg, kv))
}

// Warn logs a warn-level message built from key/value pairs.
func Warn(msg string, kv ...any) {
	logger.Warn(withFields(msg, kv))
}

// Error logs an error-level message built from key/value pairs.
func Error(msg string, kv ...any) {
	logger.Error(withFields(msg, kv))
}

func withFields(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	out := msg
	for i := 0; i+1 < len(kv); i += 2 {
		out += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	return out
}
