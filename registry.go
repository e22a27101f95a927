package main

import (
	"sync"

	"github.com/google/uuid"
)

// Match Registry (C3): mapping match-id -> Match. Read with shared access,
// modified with exclusive access, per §5's shared-resource policy.
type matchRegistry struct {
	mu      sync.RWMutex
	matches map[string]*Match
	hub     *Hub
}

func newMatchRegistry(hub *Hub) *matchRegistry {
	return &matchRegistry{
		matches: make(map[string]*Match),
		hub:     hub,
	}
}

func newMatchID() string {
	return uuid.New().String()
}

func (r *matchRegistry) create(mode Mode, difficulty Difficulty) *Match {
	id := uuid.New().String()
	m := newMatch(id, mode, difficulty, r.hub)
	r.mu.Lock()
	r.matches[id] = m
	r.mu.Unlock()
	return m
}

// createPrepopulated is used by matchmaking (C6); it fails if the id is
// already in use.
func (r *matchRegistry) createPrepopulated(id string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.matches[id]; exists {
		return nil, newError(ErrConflict, "match id already in use")
	}
	m := newMatch(id, ModeHumanVsHuman, "", r.hub)
	r.matches[id] = m
	return m, nil
}

func (r *matchRegistry) get(id string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	return m, ok
}

func (r *matchRegistry) remove(id string) {
	r.mu.Lock()
	m, ok := r.matches[id]
	delete(r.matches, id)
	r.mu.Unlock()
	if ok {
		m.teardown()
	}
}

// snapshot returns every currently registered match, for the Reaper (C7)
// to scan without holding the registry lock across each match's checks.
func (r *matchRegistry) snapshot() []*Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out
}

func (r *matchRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
