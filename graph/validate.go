package graph

import "fmt"

// Document is the as-submitted graph before validation: raw vertices and
// edges straight off the wire, any of which may be malformed. Validate
// turns a Document into an immutable Graph or reports why it can't.
type Document struct {
	Vertices []Vertex
	Edges    []Edge
}

// Validate runs the checks from spec §4.1, in order: schema, reference
// integrity, kind-specific port legality, and the generalized acyclicity
// rule (cycles permitted only through a loop vertex). It returns an
// *EngineError with Code=invalid-graph on the first violation found.
func Validate(doc Document) (*Graph, error) {
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	g := &Graph{Vertices: doc.Vertices, Edges: doc.Edges}
	g.index()

	if err := validateReferences(g); err != nil {
		return nil, err
	}
	if err := validatePorts(g); err != nil {
		return nil, err
	}
	if err := validateAcyclicity(g); err != nil {
		return nil, err
	}
	if err := validateReachability(g); err != nil {
		return nil, err
	}

	return g, nil
}

func invalidGraph(format string, args ...any) *EngineError {
	return &EngineError{Code: KindInvalidGraph, Message: fmt.Sprintf(format, args...)}
}

func validateSchema(doc Document) error {
	if len(doc.Vertices) == 0 {
		return invalidGraph("graph has no vertices")
	}
	seen := make(map[string]bool, len(doc.Vertices))
	for _, v := range doc.Vertices {
		if v.ID == "" {
			return invalidGraph("vertex has empty id")
		}
		if seen[v.ID] {
			return invalidGraph("duplicate vertex id %q", v.ID)
		}
		seen[v.ID] = true
		if !isValidKind(v.Kind) {
			return invalidGraph("vertex %q has unknown kind %q", v.ID, v.Kind)
		}
	}
	edgeIDs := make(map[string]bool, len(doc.Edges))
	for _, e := range doc.Edges {
		if e.ID == "" {
			return invalidGraph("edge has empty id")
		}
		if edgeIDs[e.ID] {
			return invalidGraph("duplicate edge id %q", e.ID)
		}
		edgeIDs[e.ID] = true
		if e.Source == "" || e.Target == "" {
			return invalidGraph("edge %q missing source or target", e.ID)
		}
		switch e.SourcePort {
		case "", PortTrue, PortFalse, PortLoop, PortDone:
		default:
			return invalidGraph("edge %q has unrecognized source port %q", e.ID, e.SourcePort)
		}
	}
	return nil
}

func isValidKind(k Kind) bool {
	for _, vk := range ValidKinds {
		if vk == k {
			return true
		}
	}
	return false
}

func validateReferences(g *Graph) error {
	for _, e := range g.Edges {
		if _, ok := g.Vertex(e.Source); !ok {
			return invalidGraph("edge %q references unknown source %q", e.ID, e.Source)
		}
		if _, ok := g.Vertex(e.Target); !ok {
			return invalidGraph("edge %q references unknown target %q", e.ID, e.Target)
		}
	}
	return nil
}

// validatePorts enforces that condition vertices only ever use ports
// true/false and loop vertices only ever use ports loop/done (§3, §4.1).
func validatePorts(g *Graph) error {
	for i := range g.Vertices {
		v := &g.Vertices[i]
		out := g.Outbound(v.ID)
		switch v.Kind {
		case KindCondition:
			for _, e := range out {
				if e.SourcePort != PortTrue && e.SourcePort != PortFalse {
					return invalidGraph("condition vertex %q has edge %q with illegal port %q", v.ID, e.ID, e.SourcePort)
				}
			}
		case KindLoop:
			for _, e := range out {
				if e.SourcePort != PortLoop && e.SourcePort != PortDone {
					return invalidGraph("loop vertex %q has edge %q with illegal port %q", v.ID, e.ID, e.SourcePort)
				}
			}
		default:
			for _, e := range out {
				if e.SourcePort != "" {
					return invalidGraph("vertex %q (kind %s) must not use source port %q", v.ID, v.Kind, e.SourcePort)
				}
			}
		}
	}
	return nil
}

// validateAcyclicity implements the generalized acyclicity rule: every
// cycle in the directed multigraph must pass through at least one loop
// vertex. We check this by removing all edges whose target is a loop
// vertex (candidate back-edges) and confirming what remains is a DAG.
// Self-loops on a loop vertex are rejected outright (§4.1) unless routed
// through an intermediate worker chain — i.e. a direct L->L edge is
// always illegal, but L->W->L is fine once the direct-edge case is ruled
// out here and the general DAG-over-non-loop-targets check passes.
func validateAcyclicity(g *Graph) error {
	for _, e := range g.Edges {
		if e.Source == e.Target {
			if tv, _ := g.Vertex(e.Target); tv != nil && tv.Kind == KindLoop {
				return invalidGraph("loop vertex %q has an illegal direct self-loop via edge %q", e.Target, e.ID)
			}
		}
	}

	reduced := make(map[string][]string, len(g.Vertices))
	for _, v := range g.Vertices {
		reduced[v.ID] = nil
	}
	for _, e := range g.Edges {
		tv, _ := g.Vertex(e.Target)
		if tv != nil && tv.Kind == KindLoop {
			continue // candidate back-edge: excluded from the DAG check
		}
		reduced[e.Source] = append(reduced[e.Source], e.Target)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Vertices))
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, next := range reduced[id] {
			switch color[next] {
			case gray:
				return invalidGraph("cycle detected through non-loop vertices reaching %q; cycles are only legal through a loop vertex", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}
	for _, v := range g.Vertices {
		if color[v.ID] == white {
			if err := visit(v.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateReachability requires at least one sink reachable from some
// source (§3). A source has no inbound edges; a sink has no outbound
// edges.
func validateReachability(g *Graph) error {
	var sources, sinks []string
	for _, v := range g.Vertices {
		if len(g.Inbound(v.ID)) == 0 {
			sources = append(sources, v.ID)
		}
		if len(g.Outbound(v.ID)) == 0 {
			sinks = append(sinks, v.ID)
		}
	}
	if len(sources) == 0 {
		return invalidGraph("graph has no source vertex (every vertex has an inbound edge)")
	}
	if len(sinks) == 0 {
		return invalidGraph("graph has no sink vertex (every vertex has an outbound edge)")
	}

	reachable := make(map[string]bool, len(g.Vertices))
	var stack []string
	for _, s := range sources {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		for _, e := range g.Outbound(id) {
			stack = append(stack, e.Target)
		}
	}
	for _, sink := range sinks {
		if reachable[sink] {
			return nil
		}
	}
	return invalidGraph("no sink vertex is reachable from any source vertex")
}
