package dashboard

import (
	"context"
	"sync"
	"time"

	"snooptrade/internal/session"
	"snooptrade/observability"
)

// Registry holds one Board per session id
type Registry struct {
	mu      sync.Mutex
	boards  map[string]*Board
	source  Source
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRegistry creates an empty registry whose boards load from source
func NewRegistry(source Source, metrics *observability.Metrics) *Registry {
	return &Registry{
		boards:  make(map[string]*Board),
		source:  source,
		metrics: metrics,
		now:     time.Now,
	}
}

// Board returns the board for sessionID, creating an idle one if needed
func (r *Registry) Board(sessionID string) *Board {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boards[sessionID]
	if !ok {
		b = NewBoard(r.source, r.metrics)
		b.now = r.now
		b.lastUsed = r.now()
		r.boards[sessionID] = b
	}
	return b
}

// Remove forgets the board for sessionID
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, sessionID)
}

// Len returns the number of boards held
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Prune drops boards unused for longer than maxIdle
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, b := range r.boards {
		if b.idleSince().Before(cutoff) {
			delete(r.boards, id)
			n++
		}
	}
	return n
}

// PruneTask adapts Prune to the session janitor
func (r *Registry) PruneTask(maxIdle time.Duration) session.Task {
	return func(ctx context.Context) {
		if n := r.Prune(maxIdle); n > 0 {
			observability.Debug("idle dashboards pruned", "count", n)
		}
	}
}
