// Package tracing keeps recent mock invocations in memory and streams them
// to live subscribers.
package tracing

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prasenjit/go-mocksim/internal/models"
)

// DefaultMaxTraces is the ring capacity used when none is configured
const DefaultMaxTraces = 1000

// subscriberBuffer is how many traces a subscriber may lag behind
const subscriberBuffer = 100

// Service is a fixed-capacity ring of traces. Once full, the oldest trace is
// overwritten.
type Service struct {
	mu    sync.RWMutex
	ring  []*models.Trace
	next  int // slot of the next write
	count int

	subscribers map[string]chan *models.Trace
	dropped     uint64
}

// Stats describes the ring and its subscribers
type Stats struct {
	TotalTraces       int    `json:"totalTraces"`
	MaxTraces         int    `json:"maxTraces"`
	ActiveSubscribers int    `json:"activeSubscribers"`
	DroppedDeliveries uint64 `json:"droppedDeliveries"`
}

// NewService creates a new tracing service
func NewService(maxTraces int) *Service {
	if maxTraces <= 0 {
		maxTraces = DefaultMaxTraces
	}

	return &Service{
		ring:        make([]*models.Trace, maxTraces),
		subscribers: make(map[string]chan *models.Trace),
	}
}

// RecordTrace stores trace, assigning an id and timestamp when missing
func (s *Service) RecordTrace(trace *models.Trace) {
	if trace.ID == "" {
		trace.ID = uuid.New().String()
	}
	if trace.Timestamp.IsZero() {
		trace.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = trace
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}

	// Sends happen under the lock so Unsubscribe cannot close a channel
	// mid-send. Slow subscribers miss traces.
	for _, ch := range s.subscribers {
		select {
		case ch <- trace:
		default:
			s.dropped++
		}
	}
}

// each calls fn from newest to oldest until fn returns false
func (s *Service) each(fn func(*models.Trace) bool) {
	for i := 1; i <= s.count; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		if !fn(s.ring[idx]) {
			return
		}
	}
}

// GetTraces returns the traces matching filter, newest first
func (s *Service) GetTraces(filter *models.TraceFilter) []*models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Trace, 0)
	s.each(func(t *models.Trace) bool {
		if !filter.Match(t) {
			return true
		}
		result = append(result, t)
		return filter == nil || filter.Limit <= 0 || len(result) < filter.Limit
	})
	return result
}

// GetTrace returns a single trace by ID
func (s *Service) GetTrace(id string) *models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Trace
	s.each(func(t *models.Trace) bool {
		if t.ID == id {
			found = t
			return false
		}
		return true
	})
	return found
}

// ClearTraces removes all traces
func (s *Service) ClearTraces() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.ring)
	s.next, s.count = 0, 0
}

// ClearTracesByEndpoint removes the traces of one endpoint, keeping the
// order of the rest
func (s *Service) ClearTracesByEndpoint(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*models.Trace, 0, s.count)
	s.each(func(t *models.Trace) bool {
		if t.EndpointID != endpointID {
			kept = append(kept, t)
		}
		return true
	})

	clear(s.ring)
	// kept is newest first; rewrite it oldest first from slot 0
	for i := range kept {
		s.ring[i] = kept[len(kept)-1-i]
	}
	s.count = len(kept)
	s.next = s.count % len(s.ring)
}

// Subscribe creates a subscription for live traces
func (s *Service) Subscribe() (string, chan *models.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan *models.Trace, subscriberBuffer)
	s.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes a subscription and closes its channel
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// GetStats returns tracing statistics
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		TotalTraces:       s.count,
		MaxTraces:         len(s.ring),
		ActiveSubscribers: len(s.subscribers),
		DroppedDeliveries: s.dropped,
	}
}
