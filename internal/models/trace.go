package models

import (
	"strings"
	"time"
)

// Outcome of a mock invocation
const (
	OutcomeResponse     = "response"
	OutcomeTimeout      = "timeout"
	OutcomeNetworkError = "network_error"
	OutcomeConfigError  = "config_error"
)

// Trace represents a captured mock invocation
type Trace struct {
	ID           string        `json:"id"`
	EndpointID   string        `json:"endpointId"`
	MockConfigID string        `json:"mockConfigId"`
	Timestamp    time.Time     `json:"timestamp"`
	Duration     int64         `json:"duration"` // Duration in nanoseconds
	Outcome      string        `json:"outcome"`  // One of the Outcome* constants
	Strategy     string        `json:"strategy,omitempty"`
	State        string        `json:"state,omitempty"` // Scenario state after the call
	CallCount    int           `json:"callCount"`
	DelayMs      int64         `json:"delayMs"`
	Error        string        `json:"error,omitempty"`
	Request      TraceRequest  `json:"request"`
	Response     TraceResponse `json:"response"`
}

// TraceRequest represents the captured request
type TraceRequest struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

// TraceResponse represents the captured response
type TraceResponse struct {
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body"`
}

// TraceFilter represents filters for querying traces
type TraceFilter struct {
	EndpointID string    `json:"endpointId,omitempty"`
	Method     string    `json:"method,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	StartTime  time.Time `json:"startTime,omitempty"`
	EndTime    time.Time `json:"endTime,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}

// Match reports whether t passes every set field of the filter. Limit is ignored.
func (f *TraceFilter) Match(t *Trace) bool {
	if f == nil {
		return true
	}
	switch {
	case f.EndpointID != "" && t.EndpointID != f.EndpointID:
		return false
	case f.Method != "" && !strings.EqualFold(t.Request.Method, f.Method):
		return false
	case f.Outcome != "" && t.Outcome != f.Outcome:
		return false
	case f.Strategy != "" && t.Strategy != f.Strategy:
		return false
	case f.StatusCode != 0 && t.Response.StatusCode != f.StatusCode:
		return false
	case !f.StartTime.IsZero() && t.Timestamp.Before(f.StartTime):
		return false
	case !f.EndTime.IsZero() && t.Timestamp.After(f.EndTime):
		return false
	}
	return true
}
