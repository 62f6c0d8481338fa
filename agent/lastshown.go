package agent

import (
	"sync"

	"recipeagent"
)

// lastShownStore keeps the most recent ranked list per username for the life
// of the process. Each username has its own lock so concurrent turns for
// different users never contend; a turn for one user holds that user's lock
// from load to persist.
type lastShownStore struct {
	mu      sync.Mutex
	entries map[string]*lastShownEntry
}

type lastShownEntry struct {
	mu      sync.Mutex
	recipes []recipeagent.Recipe
}

func newLastShownStore() *lastShownStore {
	return &lastShownStore{entries: make(map[string]*lastShownEntry)}
}

// entry returns the per-user record, creating it on first use. Callers must
// lock the returned entry for the duration of the turn.
func (s *lastShownStore) entry(username string) *lastShownEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[username]
	if !ok {
		e = &lastShownEntry{}
		s.entries[username] = e
	}
	return e
}

// get returns the cached list. Caller holds e.mu.
func (e *lastShownEntry) get() []recipeagent.Recipe {
	return e.recipes
}

// replace overwrites the cached list. Caller holds e.mu.
func (e *lastShownEntry) replace(recipes []recipeagent.Recipe) {
	e.recipes = recipes
}
