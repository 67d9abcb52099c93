package operator

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/internal/obslog"
)

// logStart logs an operator beginning execution, at Info.
func logStart(v *graph.Vertex) {
	obslog.Info("node start", "vertex", v.ID, "kind", v.Kind)
}

// logFinish logs an operator completing successfully, at Info.
func logFinish(v *graph.Vertex) {
	obslog.Info("node finish", "vertex", v.ID, "kind", v.Kind)
}

// cancelledErr publishes the node_failed(kind='cancelled') event spec §5
// requires of a cancelled operator, then returns err unwrapped so the
// scheduler recognizes a run-level cancellation rather than an ordinary
// node failure.
func cancelledErr(vertexID string, pub graph.Publisher, err error) error {
	pub.NodeFailed(vertexID, graph.KindCancelled, err.Error())
	obslog.Info("node cancelled", "vertex", vertexID)
	return err
}

// failNode wraps err as a NodeError of kind, publishes node_failed, and
// returns the NodeError for the scheduler.
func failNode(vertexID string, pub graph.Publisher, kind, msg string, cause error) error {
	pub.NodeFailed(vertexID, kind, msg)
	obslog.Error("node failed", "vertex", vertexID, "kind", kind, "error", msg)
	return &graph.NodeError{VertexID: vertexID, Kind: kind, Message: msg, Cause: cause}
}

// looksLikeTimeout distinguishes a per-attempt timeout (model-timeout) from
// retries/fallback exhausted for another reason (model-unavailable /
// search-unavailable), once the outer context itself is confirmed live.
func looksLikeTimeout(err error) bool {
	if err == nil {
		return false
	}
	if err == context.DeadlineExceeded {
		return true
	}
	return strings.Contains(err.Error(), "deadline exceeded") || strings.Contains(err.Error(), "timeout")
}

// normalizeWorkingNotes renders an intermediate working note (a model's
// markdown-formatted summary or critique, which may carry heading markup,
// fenced code, or stray formatting) down to flat text: parse as markdown,
// render to HTML, then pull the HTML's visible text back out. This keeps
// multi-round hierarchical reduction and aggregator critique passes from
// compounding markdown syntax across levels.
func normalizeWorkingNotes(text string) string {
	exts := parser.CommonExtensions | parser.AutoHeadingIDs
	doc := parser.NewWithExtensions(exts).Parse([]byte(text))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.Render(doc, renderer)

	node, err := goquery.NewDocumentFromReader(bytes.NewReader(rendered))
	if err != nil {
		return strings.TrimSpace(text)
	}
	flat := strings.Join(strings.Fields(node.Text()), " ")
	if flat == "" {
		return strings.TrimSpace(text)
	}
	return flat
}
