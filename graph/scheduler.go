package graph

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// VertexStatus is a vertex's place in its single-writer lifecycle (§4.6).
// Every vertex except loop moves through pending -> (ready) -> running ->
// exactly one of {success, failed, skipped}. A loop vertex revisits
// running -> success repeatedly, once per delivery, until an operator
// routes a result onto the done port.
type VertexStatus string

const (
	StatusPending VertexStatus = "pending"
	StatusRunning VertexStatus = "running"
	StatusSuccess VertexStatus = "success"
	StatusFailed  VertexStatus = "failed"
	StatusSkipped VertexStatus = "skipped"
)

// Run executes g to completion: it admits vertices as their inbound edges
// resolve, dispatches ready work to a bounded pool of goroutines via
// dispatch, and publishes every event through pub. Run blocks until the
// scheduler has published its single run terminator (execution_complete or
// execution_error) and every worker has exited.
//
// maxConcurrent bounds the number of vertices executing at once (§4.6
// default 5; callers pass the session's configured value).
func Run(ctx context.Context, g *Graph, dispatch Dispatch, pub Publisher, maxConcurrent int64) error {
	s := newScheduler(g, dispatch, pub, maxConcurrent)
	return s.run(ctx)
}

type edgeDelivery struct {
	payload  string
	disabled bool
}

// scheduler is the C6 data-driven ready-set scheduler: a run-scoped
// coordinator that admits vertices onto readyCh as their inbound edges
// resolve and supervises one worker goroutine per admitted vertex through
// an errgroup, which also carries the run's first fatal error back here.
type scheduler struct {
	g        *Graph
	dispatch Dispatch
	pub      Publisher
	sem      *semaphore.Weighted
	eg       *errgroup.Group

	mu       sync.Mutex
	status   map[string]VertexStatus
	delivery map[string]map[string]edgeDelivery // vertex id -> edge id -> delivery
	readyCh  chan string                         // FIFO admission queue

	closeOnce sync.Once
}

func newScheduler(g *Graph, dispatch Dispatch, pub Publisher, maxConcurrent int64) *scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &scheduler{
		g:        g,
		dispatch: dispatch,
		pub:      pub,
		sem:      semaphore.NewWeighted(maxConcurrent),
		status:   make(map[string]VertexStatus, len(g.Vertices)),
		delivery: make(map[string]map[string]edgeDelivery, len(g.Vertices)),
		readyCh:  make(chan string, len(g.Vertices)*4+1),
	}
}

func (s *scheduler) run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	s.eg = eg

	for i := range s.g.Vertices {
		s.status[s.g.Vertices[i].ID] = StatusPending
	}

	// Sources: vertices with no inbound edges admit immediately; their
	// resolved payload is their own Seed (see resolveInbound).
	for _, v := range s.g.Vertices {
		if len(s.g.Inbound(v.ID)) == 0 {
			s.enqueue(v.ID)
		}
	}

	eg.Go(func() error { return s.drive(egCtx) })

	if err := eg.Wait(); err != nil {
		kind := KindSchedulerStuck
		if ee, ok := err.(*EngineError); ok {
			kind = ee.Code
		}
		s.pub.ExecutionError(kind, err.Error())
		return err
	}
	s.pub.ExecutionComplete()
	return nil
}

// drive pulls ready vertex ids off the FIFO queue and spawns a worker for
// each, bounded by sem. checkTerminal closes readyCh once every vertex has
// reached a terminal state, which is drive's clean-exit signal; the other
// is ctx being cancelled, either by the caller or by a sibling worker
// returning an error through the errgroup.
func (s *scheduler) drive(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return &EngineError{Code: KindCancelled, Message: "run cancelled", Cause: ctx.Err()}
		case id, ok := <-s.readyCh:
			if !ok {
				return nil
			}
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return &EngineError{Code: KindCancelled, Message: "run cancelled", Cause: err}
			}
			s.eg.Go(func() error { return s.execute(ctx, id) })
		}
	}
}

func (s *scheduler) enqueue(id string) {
	s.mu.Lock()
	s.status[id] = StatusPending
	s.mu.Unlock()
	s.readyCh <- id
}

// execute runs one vertex's operator and routes its result. It returns a
// non-nil error only for run-level faults (missing dispatch entry, an
// operator returning an unroutable multi-port result, or the run being
// cancelled mid-flight) — an ordinary operator failure is handled as a
// node-scoped NodeError via handleFailure and never escapes here.
func (s *scheduler) execute(ctx context.Context, id string) error {
	defer s.sem.Release(1)

	v, _ := s.g.Vertex(id)
	op, ok := s.dispatch[v.Kind]
	if !ok {
		// A missing dispatch entry is a wiring bug in the session that
		// assembled Dispatch, not a user error — Validate already
		// guarantees v.Kind is one of ValidKinds.
		return &EngineError{Code: KindInvalidGraph, Message: "no operator registered for kind " + string(v.Kind)}
	}

	inbound := s.resolveInbound(v)

	s.mu.Lock()
	s.status[id] = StatusRunning
	s.mu.Unlock()

	result, err := op.Execute(ctx, v, inbound, s.pub, ctx.Done())
	if err != nil {
		return s.handleFailure(v, err)
	}

	switch v.Kind {
	case KindLoop:
		return s.handleLoopResult(v, result)
	case KindCondition:
		return s.handleRoutedResult(v, result)
	}

	s.mu.Lock()
	s.status[id] = StatusSuccess
	s.mu.Unlock()
	s.deliver(v.ID, result, "")
	return nil
}

// resolveInbound merges every delivered inbound edge's payload, ordered by
// source vertex id ascending (§9 scenario 6: parallel diamond).
func (s *scheduler) resolveInbound(v *Vertex) string {
	edges := s.g.Inbound(v.ID)
	if len(edges) == 0 {
		return v.Seed
	}

	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	s.mu.Lock()
	deliveries := s.delivery[v.ID]
	s.mu.Unlock()

	var parts []string
	for _, e := range sorted {
		if d, ok := deliveries[e.ID]; ok && !d.disabled {
			parts = append(parts, d.payload)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (s *scheduler) handleFailure(v *Vertex, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The run was aborted externally (caller cancellation, or a
		// per-attempt timeout inside a C2/C3 call escaping uncaught) —
		// a run-level fault, not a vertex-scoped one.
		return &EngineError{Code: KindCancelled, Message: "vertex " + v.ID + ": " + err.Error(), Cause: err}
	}
	kind := KindOperatorBadConfig
	if ne, ok := err.(*NodeError); ok {
		kind = ne.Kind
	}
	s.fail(v, &NodeError{VertexID: v.ID, Kind: kind, Message: err.Error(), Cause: err})
	return nil
}

func (s *scheduler) fail(v *Vertex, err error) {
	s.mu.Lock()
	s.status[v.ID] = StatusFailed
	s.mu.Unlock()
	s.propagateSkip(v.ID)
	s.checkTerminal()
}

// deliver fans result out to every outbound edge whose SourcePort matches
// port (empty port matches every edge for single-output kinds), disabling
// the rest, then admits each target per §4.6.
func (s *scheduler) deliver(vertexID, result, port string) {
	for _, e := range s.g.Outbound(vertexID) {
		if !portMatches(e, port) {
			s.disableEdge(e)
			continue
		}
		s.deliverEdge(e, result)
	}
	s.checkTerminal()
}

// portMatches decides whether an outbound edge should receive a result
// routed onto port. Single-output kinds call deliver with port == "" and
// validatePorts guarantees their outbound edges carry SourcePort == "" too,
// so the comparison is exact in both cases.
func portMatches(e Edge, port string) bool {
	return e.SourcePort == port
}

func (s *scheduler) deliverEdge(e Edge, payload string) {
	s.recordDelivery(e.Target, e.ID, edgeDelivery{payload: payload})
	s.admitIfReady(e.Target, e, true)
}

func (s *scheduler) disableEdge(e Edge) {
	s.recordDelivery(e.Target, e.ID, edgeDelivery{disabled: true})
	s.admitIfReady(e.Target, e, false)
}

func (s *scheduler) recordDelivery(targetID, edgeID string, d edgeDelivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delivery[targetID] == nil {
		s.delivery[targetID] = make(map[string]edgeDelivery)
	}
	s.delivery[targetID][edgeID] = d
}

// admitIfReady implements §4.6's admission rule: a loop vertex admits on
// every individual back-edge delivery (see admitLoop), while its
// non-back-edge (forward) predecessors gate initial admission exactly
// like any other vertex; every other vertex admits once all of its
// inbound edges have either delivered or been disabled, becoming skipped
// if none delivered. triggerEdge/isDelivery identify the specific edge
// event that caused this call, which admitLoop needs to tell a genuine
// delivery apart from a disable.
func (s *scheduler) admitIfReady(targetID string, triggerEdge Edge, isDelivery bool) {
	tv, _ := s.g.Vertex(targetID)

	if tv.Kind == KindLoop {
		s.admitLoop(targetID, triggerEdge, isDelivery)
		return
	}

	inbound := s.g.Inbound(targetID)
	s.mu.Lock()
	deliveries := s.delivery[targetID]
	resolved := 0
	delivered := 0
	for _, e := range inbound {
		if d, ok := deliveries[e.ID]; ok {
			resolved++
			if !d.disabled {
				delivered++
			}
		}
	}
	alreadyHandled := s.status[targetID] != StatusPending
	s.mu.Unlock()

	if resolved < len(inbound) || alreadyHandled {
		return
	}

	if delivered == 0 {
		s.mu.Lock()
		s.status[targetID] = StatusSkipped
		s.mu.Unlock()
		s.pub.NodeSkipped(targetID)
		s.propagateSkip(targetID)
		s.checkTerminal()
		return
	}

	s.enqueue(targetID)
}

// admitLoop implements the loop vertex's split admission rule (§4.6, §9):
// a back-edge delivery re-admits the loop immediately and independently
// of everything else, since it carries the iteration's next input; a
// back-edge disable carries no payload and triggers nothing. A
// non-back-edge (forward) edge event instead gates the loop's *initial*
// admission exactly like §4.7's conservative skip rule for every other
// vertex kind: only once every forward edge has resolved, and only if at
// least one of them actually delivered — otherwise the loop is skipped,
// never admitted with an empty/bogus payload.
func (s *scheduler) admitLoop(targetID string, triggerEdge Edge, isDelivery bool) {
	if s.g.IsBackEdge(triggerEdge) {
		if isDelivery {
			s.enqueue(targetID)
		}
		return
	}

	forward := s.forwardInbound(targetID)
	s.mu.Lock()
	deliveries := s.delivery[targetID]
	resolved := 0
	delivered := 0
	for _, e := range forward {
		if d, ok := deliveries[e.ID]; ok {
			resolved++
			if !d.disabled {
				delivered++
			}
		}
	}
	alreadyHandled := s.status[targetID] != StatusPending
	s.mu.Unlock()

	if resolved < len(forward) || alreadyHandled {
		return
	}

	if delivered == 0 {
		s.mu.Lock()
		s.status[targetID] = StatusSkipped
		s.mu.Unlock()
		s.pub.NodeSkipped(targetID)
		s.propagateSkip(targetID)
		s.checkTerminal()
		return
	}

	s.enqueue(targetID)
}

// forwardInbound returns targetID's inbound edges that are not loop
// back-edges (see Graph.IsBackEdge): for a non-loop vertex this is every
// inbound edge; for a loop vertex it excludes the edge(s) that re-enter
// from its own iteration body.
func (s *scheduler) forwardInbound(targetID string) []Edge {
	all := s.g.Inbound(targetID)
	forward := make([]Edge, 0, len(all))
	for _, e := range all {
		if !s.g.IsBackEdge(e) {
			forward = append(forward, e)
		}
	}
	return forward
}

// propagateSkip disables every outbound edge of a failed or skipped
// vertex, cascading transitively per §4.6.
func (s *scheduler) propagateSkip(vertexID string) {
	for _, e := range s.g.Outbound(vertexID) {
		s.disableEdge(e)
	}
}

func (s *scheduler) handleLoopResult(v *Vertex, raw string) error {
	lr, ok := DecodeLoopResult(raw)
	if !ok {
		// The operator reported success but its result can't be routed —
		// a wiring bug in the loop operator, not a recoverable vertex
		// failure.
		return &EngineError{Code: KindOperatorBadConfig, Message: "loop vertex " + v.ID + " returned an unroutable result"}
	}
	s.mu.Lock()
	s.status[v.ID] = StatusSuccess
	s.mu.Unlock()
	s.deliver(v.ID, lr.Text, string(lr.Port))
	return nil
}

// handleRoutedResult decodes a condition operator's chosen branch and
// delivers onto that port only.
func (s *scheduler) handleRoutedResult(v *Vertex, raw string) error {
	port, text, ok := DecodeRoutedResult(v.Kind, raw)
	if !ok {
		return &EngineError{Code: KindOperatorBadConfig, Message: "condition vertex " + v.ID + " returned an unroutable result"}
	}
	s.mu.Lock()
	s.status[v.ID] = StatusSuccess
	s.mu.Unlock()
	s.deliver(v.ID, text, port)
	return nil
}

func (s *scheduler) checkTerminal() {
	s.mu.Lock()
	for _, v := range s.g.Vertices {
		st := s.status[v.ID]
		if st == StatusPending || st == StatusRunning {
			s.mu.Unlock()
			return
		}
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.readyCh) })
}
