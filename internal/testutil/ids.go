package testutil

import "sync"

// FixedIDGenerator returns predetermined run ids in order, then repeats the
// last one. This keeps stored runs byte-identical across test executions.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator over ids. With no ids it returns
// "test-run-default".
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	if len(ids) == 0 {
		ids = []string{"test-run-default"}
	}
	return &FixedIDGenerator{ids: ids}
}

// NewID returns the next id.
func (g *FixedIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
