package operator

import (
	"errors"
	"sync"

	"github.com/dshills/flowgraph-engine/graph/emit"
)

// errFake is a non-retryable stand-in for a provider error in tests that
// exercise a model call failing.
var errFake = errors.New("fake provider error")

// fakePublisher is a minimal graph.Publisher recorder for operator tests.
type fakePublisher struct {
	mu           sync.Mutex
	started      []string
	tokens       []string
	finishes     map[string]string
	failures     map[string]string
	failureCount map[string]int
	usages       []emit.Usage
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		finishes:     make(map[string]string),
		failures:     make(map[string]string),
		failureCount: make(map[string]int),
	}
}

func (p *fakePublisher) NodeStart(vertexID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, vertexID)
}

func (p *fakePublisher) TokenStream(vertexID, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, token)
}

func (p *fakePublisher) NodeUsage(vertexID string, usage emit.Usage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usages = append(p.usages, usage)
}

func (p *fakePublisher) NodeFinish(vertexID, result string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishes[vertexID] = result
}

func (p *fakePublisher) NodeFailed(vertexID, kind, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[vertexID] = kind
	p.failureCount[vertexID]++
}

func (p *fakePublisher) NodeSkipped(vertexID string) {}
func (p *fakePublisher) ExecutionComplete()          {}
func (p *fakePublisher) ExecutionError(kind, errMsg string) {}

func (p *fakePublisher) finished(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.finishes[id]
	return s, ok
}

func (p *fakePublisher) failed(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.failures[id]
	return s, ok
}

func (p *fakePublisher) failedCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failureCount[id]
}
