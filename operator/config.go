// Package operator implements C5: one Operator per vertex kind, each
// satisfying graph.Operator by calling through the shared model gateway,
// search client, and event bus a session wires in.
package operator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/flowgraph-engine/graph"
)

// badConfig builds the operator-invalid-config NodeError spec §7 requires
// when a vertex's config is missing a required key or holds a value of the
// wrong shape.
func badConfig(v *graph.Vertex, msg string) *graph.NodeError {
	return &graph.NodeError{VertexID: v.ID, Kind: graph.KindOperatorBadConfig, Message: msg}
}

// configString returns v.Config[key] as a string, or def if the key is
// absent. Any non-string value is a config error.
func configString(v *graph.Vertex, key, def string) (string, error) {
	raw, ok := v.Config[key]
	if !ok {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", badConfig(v, fmt.Sprintf("%s: expected string, got %T", key, raw))
	}
	return s, nil
}

// requireString is configString without a default: an absent or empty
// value is a config error.
func requireString(v *graph.Vertex, key string) (string, error) {
	s, err := configString(v, key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", badConfig(v, key+": required")
	}
	return s, nil
}

// configFloat returns v.Config[key] as a float64, or def if absent.
// JSON-decoded config values arrive as float64; a JSON number literal
// written by hand in a test may arrive as int, so both are accepted.
func configFloat(v *graph.Vertex, key string, def float64) (float64, error) {
	raw, ok := v.Config[key]
	if !ok {
		return def, nil
	}
	switch n := raw.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, badConfig(v, key+": not a number")
		}
		return f, nil
	default:
		return 0, badConfig(v, fmt.Sprintf("%s: expected number, got %T", key, raw))
	}
}

func configInt(v *graph.Vertex, key string, def int) (int, error) {
	f, err := configFloat(v, key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func configBool(v *graph.Vertex, key string, def bool) (bool, error) {
	raw, ok := v.Config[key]
	if !ok {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, badConfig(v, fmt.Sprintf("%s: expected bool, got %T", key, raw))
	}
	return b, nil
}

// configStringSlice returns v.Config[key] as a slice of strings. JSON
// arrays decode as []any, so each element is asserted individually.
func configStringSlice(v *graph.Vertex, key string) ([]string, error) {
	raw, ok := v.Config[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if ss, ok := raw.([]string); ok {
			return ss, nil
		}
		return nil, badConfig(v, fmt.Sprintf("%s: expected array, got %T", key, raw))
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, badConfig(v, fmt.Sprintf("%s: expected array of strings", key))
		}
		out = append(out, s)
	}
	return out, nil
}

// normalizeAnswer canonicalizes a candidate answer for equivalence-class
// voting (self-consistency majority, voting majority): trim, collapse
// internal whitespace, lowercase.
func normalizeAnswer(s string) string {
	fields := strings.Fields(s)
	return strings.ToLower(strings.Join(fields, " "))
}
