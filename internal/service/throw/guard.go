package throw

import "sync"

// guard is a per-user try-lock. It never blocks.
type guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newGuard() *guard {
	return &guard{held: make(map[string]struct{})}
}

func (g *guard) tryAcquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[userID]; busy {
		return false
	}
	g.held[userID] = struct{}{}
	return true
}

func (g *guard) release(userID string) {
	g.mu.Lock()
	delete(g.held, userID)
	g.mu.Unlock()
}
