package graph

// Kind identifies the operator a Vertex is dispatched to. The set is closed:
// the scheduler and validator both reject any value outside it.
type Kind string

const (
	KindInput            Kind = "input"
	KindOutput           Kind = "output"
	KindLLM              Kind = "llm"
	KindSearch           Kind = "search"
	KindCondition        Kind = "condition"
	KindLoop             Kind = "loop"
	KindSplitter         Kind = "splitter"
	KindReducer          Kind = "reducer"
	KindSelfConsistency  Kind = "self-consistency"
	KindMoAProposer      Kind = "moa-proposer"
	KindMoAAggregator    Kind = "moa-aggregator"
	KindDebate           Kind = "debate"
	KindVoting           Kind = "voting"
)

// ValidKinds enumerates every Kind the validator accepts, in the order
// they're checked — keeping a single source of truth for the closed set.
var ValidKinds = []Kind{
	KindInput, KindOutput, KindLLM, KindSearch, KindCondition, KindLoop,
	KindSplitter, KindReducer, KindSelfConsistency, KindMoAProposer,
	KindMoAAggregator, KindDebate, KindVoting,
}

// Port names used on the two multi-output vertex kinds. All other kinds
// publish on the single unnamed port (empty string).
const (
	PortTrue = "true"
	PortFalse = "false"
	PortLoop = "loop"
	PortDone = "done"
)

// Vertex is one node of a submitted computation graph. Vertices are
// immutable once a Graph has been validated; an operator mutates only the
// Execution Record created for it at admission time, never the Vertex
// itself.
type Vertex struct {
	ID     string
	Kind   Kind
	Config map[string]any
	// Seed is the authoring-time value carried by an `input` vertex.
	Seed string
}

// Edge connects two vertices. SourcePort distinguishes the outgoing channel
// of a multi-output vertex (condition, loop); it is empty for every other
// kind. TargetPort is preserved from the submitted document but carries no
// scheduling semantics.
type Edge struct {
	ID         string
	Source     string
	Target     string
	SourcePort string
	TargetPort string
}

// Graph is a validated, immutable computation graph: the scheduler and
// operators never see a Graph that failed Validate.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge

	byID     map[string]*Vertex
	in       map[string][]Edge // edges keyed by target
	out      map[string][]Edge // edges keyed by source
	backEdge map[string]bool   // edge id -> is this a genuine loop back-edge
}

// Vertex looks up a vertex by id. Only callable on a validated Graph.
func (g *Graph) Vertex(id string) (*Vertex, bool) {
	v, ok := g.byID[id]
	return v, ok
}

// Inbound returns the edges terminating at id, in submission order.
func (g *Graph) Inbound(id string) []Edge { return g.in[id] }

// Outbound returns the edges originating at id, in submission order.
func (g *Graph) Outbound(id string) []Edge { return g.out[id] }

// IsBackEdge reports whether e is a genuine loop back-edge per §4.6/§9: an
// edge (s->L) where L is a loop vertex and s is reachable from L using
// only edges that do not target a loop vertex. An edge whose target is a
// loop vertex but whose source is NOT forward-reachable from that loop
// (an ordinary predecessor feeding the loop's first iteration) is not a
// back-edge even though it shares the same "target is a loop" shape the
// acyclicity check uses as its coarser, validation-time approximation.
func (g *Graph) IsBackEdge(e Edge) bool { return g.backEdge[e.ID] }

// index builds the lookup tables used by Vertex/Inbound/Outbound. Called
// once by Validate after a document passes every structural check.
func (g *Graph) index() {
	g.byID = make(map[string]*Vertex, len(g.Vertices))
	for i := range g.Vertices {
		g.byID[g.Vertices[i].ID] = &g.Vertices[i]
	}
	g.in = make(map[string][]Edge)
	g.out = make(map[string][]Edge)
	for _, e := range g.Edges {
		g.in[e.Target] = append(g.in[e.Target], e)
		g.out[e.Source] = append(g.out[e.Source], e)
	}
	g.computeBackEdges()
}

// computeBackEdges classifies every edge targeting a loop vertex L as a
// genuine back-edge iff its source is reachable from L along the forward
// graph (every edge except those targeting a loop vertex — the same
// reduced graph validateAcyclicity walks). Computed once, since Graph is
// immutable after Validate.
func (g *Graph) computeBackEdges() {
	g.backEdge = make(map[string]bool)

	forward := make(map[string][]string, len(g.Vertices))
	for _, e := range g.Edges {
		if tv, ok := g.Vertex(e.Target); ok && tv.Kind == KindLoop {
			continue
		}
		forward[e.Source] = append(forward[e.Source], e.Target)
	}

	for _, v := range g.Vertices {
		if v.Kind != KindLoop {
			continue
		}
		reachable := make(map[string]bool)
		stack := append([]string(nil), forward[v.ID]...)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reachable[id] {
				continue
			}
			reachable[id] = true
			stack = append(stack, forward[id]...)
		}
		for _, e := range g.Inbound(v.ID) {
			if reachable[e.Source] {
				g.backEdge[e.ID] = true
			}
		}
	}
}
