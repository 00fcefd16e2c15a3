package query

import (
	"sync"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Memo caches the most recent view of a pipeline.
//
// The cache key is the records generation (bumped by the owner whenever it
// replaces its record slice) plus [ViewState.Key], i.e. the four inputs a view
// depends on: records, search query, filters and sort. Only the latest result
// is kept.
type Memo struct {
	pipeline *Pipeline

	mu           sync.Mutex
	valid        bool
	generation   uint64
	key          string
	result       Result
	computations int
}

// NewMemo returns an empty memo over p.
func NewMemo(p *Pipeline) *Memo {
	return &Memo{pipeline: p}
}

// View returns the view for (generation, state), recomputing only when either
// changed since the previous call. Errors are not cached.
func (m *Memo) View(generation uint64, records []record.Record, state ViewState) (Result, error) {
	key := state.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.generation == generation && m.key == key {
		return m.result, nil
	}

	res, err := m.pipeline.Run(records, state)
	if err != nil {
		return Result{}, err
	}

	m.computations++
	m.valid = true
	m.generation = generation
	m.key = key
	m.result = res

	return res, nil
}

// Invalidate drops the cached view.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}

// Computations returns how many times the memo ran the pipeline.
func (m *Memo) Computations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.computations
}
