// Package dedupe tracks submission ids so the settlement pipeline
// processes each work submission at most once.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize bounds the in-memory id set.
const defaultMaxSize = 50000

// Deduper records seen submission IDs for at-most-once settlement.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records
	// it if not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id, allowing a retry. Used when a submission
	// was recorded but could not be enqueued (backpressure).
	Unrecord(ctx context.Context, id string)

	// Size returns the number of tracked ids.
	Size() int
}

// tracker implements Deduper with a bounded id set. When the bound is
// reached the oldest recorded id is evicted first.
type tracker struct {
	mu      sync.Mutex
	seen    map[string]int // id -> index into order
	order   []string       // insertion order, oldest first
	maxSize int
}

// Option applies a configuration option to the tracker.
type Option func(*tracker)

// WithMaxSize bounds the number of tracked ids. Non-positive keeps the
// default bound.
func WithMaxSize(maxSize int) Option {
	return func(t *tracker) {
		if maxSize > 0 {
			t.maxSize = maxSize
		}
	}
}

// New creates a bounded in-memory deduper.
func New(opts ...Option) Deduper {
	t := &tracker{
		seen:    make(map[string]int),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tracker) SeenAndRecord(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true
	}

	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.seen, oldest)
		t.reindexLocked()
	}

	t.seen[id] = len(t.order)
	t.order = append(t.order, id)
	return false
}

func (t *tracker) Unrecord(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.seen[id]
	if !ok {
		return
	}
	delete(t.seen, id)
	t.order = append(t.order[:idx], t.order[idx+1:]...)
	t.reindexLocked()
}

func (t *tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// reindexLocked rebuilds the id -> position map after a removal.
// Must run with t.mu held.
func (t *tracker) reindexLocked() {
	for i, id := range t.order {
		t.seen[id] = i
	}
}
