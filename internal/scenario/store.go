package scenario

import (
	"sync"
)

// EndpointState is the runtime state the engine keeps for one endpoint
type EndpointState struct {
	// State is the current scenario state; empty until the first scenario call
	State     string `json:"state,omitempty"`
	CallCount int    `json:"callCount"`
}

// StateStore holds EndpointState keyed by endpoint id.
// Update must serialise calls for the same key.
type StateStore interface {
	Get(endpointID string) EndpointState
	// Update runs fn on a copy of the endpoint state and stores the copy
	// only when fn returns nil
	Update(endpointID string, fn func(*EndpointState) error) error
	Delete(endpointID string)
	Clear()
	// Snapshot copies every tracked endpoint state
	Snapshot() map[string]EndpointState
}

type stateEntry struct {
	mu    sync.Mutex
	state EndpointState
}

// MemoryStateStore is an in-process StateStore with one lock per endpoint
type MemoryStateStore struct {
	mu      sync.RWMutex
	entries map[string]*stateEntry
}

// NewMemoryStateStore creates an empty store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]*stateEntry),
	}
}

func (s *MemoryStateStore) entry(endpointID string) *stateEntry {
	s.mu.RLock()
	e, ok := s.entries[endpointID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[endpointID]; !ok {
		e = &stateEntry{}
		s.entries[endpointID] = e
	}
	return e
}

// Get returns the endpoint state, zero valued when absent
func (s *MemoryStateStore) Get(endpointID string) EndpointState {
	s.mu.RLock()
	e, ok := s.entries[endpointID]
	s.mu.RUnlock()
	if !ok {
		return EndpointState{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Update applies fn under the endpoint lock
func (s *MemoryStateStore) Update(endpointID string, fn func(*EndpointState) error) error {
	e := s.entry(endpointID)

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	if err := fn(&next); err != nil {
		return err
	}
	e.state = next
	return nil
}

// Delete forgets the endpoint
func (s *MemoryStateStore) Delete(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, endpointID)
}

// Clear forgets every endpoint
func (s *MemoryStateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*stateEntry)
}

// Snapshot returns a copy of every endpoint state
func (s *MemoryStateStore) Snapshot() map[string]EndpointState {
	s.mu.RLock()
	entries := make(map[string]*stateEntry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	s.mu.RUnlock()

	out := make(map[string]EndpointState, len(entries))
	for k, e := range entries {
		e.mu.Lock()
		out[k] = e.state
		e.mu.Unlock()
	}
	return out
}
