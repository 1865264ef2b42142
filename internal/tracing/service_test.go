package tracing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prasenjit/go-mocksim/internal/models"
)

func trace(endpointID, method string, status int) *models.Trace {
	return &models.Trace{
		EndpointID: endpointID,
		Outcome:    models.OutcomeResponse,
		Request:    models.TraceRequest{Method: method, Path: "/" + endpointID},
		Response:   models.TraceResponse{StatusCode: status},
	}
}

func endpointIDs(traces []*models.Trace) []string {
	ids := make([]string, len(traces))
	for i, t := range traces {
		ids[i] = t.EndpointID
	}
	return ids
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name        string
		maxTraces   int
		expectedMax int
	}{
		{"positive max", 500, 500},
		{"zero max uses default", 0, DefaultMaxTraces},
		{"negative max uses default", -1, DefaultMaxTraces},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.maxTraces)
			if got := s.GetStats().MaxTraces; got != tt.expectedMax {
				t.Errorf("Expected capacity %d, got %d", tt.expectedMax, got)
			}
		})
	}
}

func TestRecordTrace(t *testing.T) {
	s := NewService(100)

	tr := trace("ep-1", "GET", 200)
	s.RecordTrace(tr)

	if tr.ID == "" {
		t.Error("Expected trace ID to be generated")
	}
	if tr.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kept := &models.Trace{ID: "custom", Timestamp: fixed}
	s.RecordTrace(kept)
	if kept.ID != "custom" || !kept.Timestamp.Equal(fixed) {
		t.Error("Expected existing id and timestamp to be preserved")
	}
}

func TestRing_Wraps(t *testing.T) {
	s := NewService(3)

	for i := 0; i < 5; i++ {
		s.RecordTrace(trace(fmt.Sprintf("ep-%d", i), "GET", 200))
	}

	got := endpointIDs(s.GetTraces(nil))
	want := []string{"ep-4", "ep-3", "ep-2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected %v newest first, got %v", want, got)
	}
	if s.GetStats().TotalTraces != 3 {
		t.Errorf("Expected 3 traces, got %d", s.GetStats().TotalTraces)
	}
}

func TestGetTraces_Filters(t *testing.T) {
	s := NewService(100)

	base := time.Now().Add(-time.Hour)
	records := []*models.Trace{
		{EndpointID: "users", Outcome: models.OutcomeResponse, Strategy: "static",
			Request: models.TraceRequest{Method: "GET"}, Response: models.TraceResponse{StatusCode: 200}},
		{EndpointID: "users", Outcome: models.OutcomeResponse, Strategy: "sequence",
			Request: models.TraceRequest{Method: "POST"}, Response: models.TraceResponse{StatusCode: 201}},
		{EndpointID: "orders", Outcome: models.OutcomeTimeout,
			Request: models.TraceRequest{Method: "GET"}},
		{EndpointID: "orders", Outcome: models.OutcomeResponse, Strategy: "error_scenario",
			Request: models.TraceRequest{Method: "GET"}, Response: models.TraceResponse{StatusCode: 429}},
	}
	for i, r := range records {
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		s.RecordTrace(r)
	}

	tests := []struct {
		name   string
		filter *models.TraceFilter
		want   int
	}{
		{"nil filter", nil, 4},
		{"empty filter", &models.TraceFilter{}, 4},
		{"endpoint", &models.TraceFilter{EndpointID: "users"}, 2},
		{"method is case insensitive", &models.TraceFilter{Method: "get"}, 3},
		{"outcome", &models.TraceFilter{Outcome: models.OutcomeTimeout}, 1},
		{"strategy", &models.TraceFilter{Strategy: "sequence"}, 1},
		{"status code", &models.TraceFilter{StatusCode: 429}, 1},
		{"start time", &models.TraceFilter{StartTime: base.Add(90 * time.Second)}, 2},
		{"end time", &models.TraceFilter{EndTime: base.Add(30 * time.Second)}, 1},
		{"limit", &models.TraceFilter{Limit: 3}, 3},
		{"combined", &models.TraceFilter{EndpointID: "orders", Method: "GET", Outcome: models.OutcomeResponse}, 1},
		{"no match", &models.TraceFilter{EndpointID: "missing"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.GetTraces(tt.filter); len(got) != tt.want {
				t.Errorf("Expected %d traces, got %d", tt.want, len(got))
			}
		})
	}
}

func TestGetTrace(t *testing.T) {
	s := NewService(2)

	first := trace("a", "GET", 200)
	s.RecordTrace(first)
	second := trace("b", "GET", 200)
	s.RecordTrace(second)

	if got := s.GetTrace(second.ID); got != second {
		t.Errorf("Expected trace %s, got %v", second.ID, got)
	}
	if s.GetTrace("missing") != nil {
		t.Error("Expected nil for unknown id")
	}

	// Overwritten traces are gone
	s.RecordTrace(trace("c", "GET", 200))
	if s.GetTrace(first.ID) != nil {
		t.Error("Expected evicted trace to be gone")
	}
}

func TestClearTraces(t *testing.T) {
	s := NewService(3)
	for i := 0; i < 5; i++ {
		s.RecordTrace(trace("ep", "GET", 200))
	}

	s.ClearTraces()
	if len(s.GetTraces(nil)) != 0 {
		t.Error("Expected no traces after clear")
	}

	s.RecordTrace(trace("after", "GET", 200))
	if got := endpointIDs(s.GetTraces(nil)); len(got) != 1 || got[0] != "after" {
		t.Errorf("Expected ring to restart, got %v", got)
	}
}

func TestClearTracesByEndpoint(t *testing.T) {
	s := NewService(4)
	for _, id := range []string{"a", "b", "a", "c", "b"} {
		s.RecordTrace(trace(id, "GET", 200))
	}

	s.ClearTracesByEndpoint("a")

	got := endpointIDs(s.GetTraces(nil))
	if fmt.Sprint(got) != fmt.Sprint([]string{"b", "c", "b"}) {
		t.Errorf("Expected remaining order kept, got %v", got)
	}

	// Recording continues after the compacted entries
	s.RecordTrace(trace("d", "GET", 200))
	s.RecordTrace(trace("e", "GET", 200))
	got = endpointIDs(s.GetTraces(nil))
	if fmt.Sprint(got) != fmt.Sprint([]string{"e", "d", "b", "c"}) {
		t.Errorf("Unexpected order after refill: %v", got)
	}
}

func TestSubscribe(t *testing.T) {
	s := NewService(100)

	id, ch := s.Subscribe()
	if id == "" || ch == nil {
		t.Fatal("Expected a subscription")
	}
	if s.GetStats().ActiveSubscribers != 1 {
		t.Error("Expected 1 active subscriber")
	}

	s.RecordTrace(trace("ep-1", "GET", 200))
	select {
	case got := <-ch:
		if got.EndpointID != "ep-1" {
			t.Errorf("Expected endpoint ID 'ep-1', got %q", got.EndpointID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for trace on subscription channel")
	}

	s.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed")
	}
	if s.GetStats().ActiveSubscribers != 0 {
		t.Error("Expected 0 active subscribers after unsubscribe")
	}

	// Unsubscribe non-existent (should not panic)
	s.Unsubscribe("nonexistent")
}

func TestSlowSubscriberDropsTraces(t *testing.T) {
	s := NewService(1000)

	id, _ := s.Subscribe()
	defer s.Unsubscribe(id)

	for i := 0; i < subscriberBuffer+5; i++ {
		s.RecordTrace(trace("ep", "GET", 200))
	}

	if got := s.GetStats().DroppedDeliveries; got != 5 {
		t.Errorf("Expected 5 dropped deliveries, got %d", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewService(100)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.RecordTrace(trace("ep-1", "GET", 200))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = s.GetTraces(&models.TraceFilter{EndpointID: "ep-1"})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			id, _ := s.Subscribe()
			s.Unsubscribe(id)
		}
	}()

	wg.Wait()

	if traces := s.GetTraces(nil); len(traces) != 50 {
		t.Errorf("Expected 50 traces, got %d", len(traces))
	}
}

func TestUnsubscribeWhileRecording(t *testing.T) {
	s := NewService(100)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.RecordTrace(trace("ep-1", "GET", 200))
		}
	}()

	for i := 0; i < 50; i++ {
		id, _ := s.Subscribe()
		s.Unsubscribe(id)
	}
	<-done
}
