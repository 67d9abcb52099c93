// Package wire implements the JSON wire schema for the duplex session
// protocol (spec §6): the client's single submission frame and the
// server's stream of typed event frames. It holds schema and marshaling
// only — the actual transport (websocket read/write loop) lives in
// session.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/flowgraph-engine/graph"
)

// ClientFrame is the one frame a client sends to open a session: the
// model gateway API key and the graph to execute.
type ClientFrame struct {
	APIKey string
	Doc    graph.Document
}

// ParseClientFrame decodes raw per spec §6's client frame shape:
//
//	{ "apiKey": string, "nodes": [Vertex...], "edges": [Edge...] }
//	Vertex: { "id", "type", "position" (ignored), "data": { "node_config", "inputValue"? } }
//	Edge:   { "id", "source", "target", "sourceHandle", "targetHandle" }
//
// gjson is used instead of a strict encoding/json struct so an unknown
// extra field (or a "position" object of arbitrary shape) never fails the
// parse — only the fields the core actually reads are extracted.
func ParseClientFrame(raw []byte) (ClientFrame, error) {
	if !gjson.ValidBytes(raw) {
		return ClientFrame{}, fmt.Errorf("wire: client frame is not valid JSON")
	}
	parsed := gjson.ParseBytes(raw)

	vertices, err := parseVertices(parsed.Get("nodes"))
	if err != nil {
		return ClientFrame{}, err
	}

	var edges []graph.Edge
	for _, e := range parsed.Get("edges").Array() {
		edges = append(edges, graph.Edge{
			ID:         e.Get("id").String(),
			Source:     e.Get("source").String(),
			Target:     e.Get("target").String(),
			SourcePort: e.Get("sourceHandle").String(),
			TargetPort: e.Get("targetHandle").String(),
		})
	}

	return ClientFrame{
		APIKey: parsed.Get("apiKey").String(),
		Doc:    graph.Document{Vertices: vertices, Edges: edges},
	}, nil
}

func parseVertices(nodes gjson.Result) ([]graph.Vertex, error) {
	var vertices []graph.Vertex
	for _, n := range nodes.Array() {
		v := graph.Vertex{
			ID:   n.Get("id").String(),
			Kind: graph.Kind(n.Get("type").String()),
			Seed: n.Get("data.inputValue").String(),
		}
		if cfg := n.Get("data.node_config"); cfg.Exists() && cfg.IsObject() {
			var m map[string]any
			if err := json.Unmarshal([]byte(cfg.Raw), &m); err != nil {
				return nil, fmt.Errorf("wire: vertex %q node_config: %w", v.ID, err)
			}
			v.Config = m
		}
		vertices = append(vertices, v)
	}
	return vertices, nil
}
