package models

import (
	"sync"
	"sync/atomic"
	"time"
)

// GlobalStats represents global statistics
type GlobalStats struct {
	TotalRequests     int64          `json:"totalRequests"`
	TotalErrors       int64          `json:"totalErrors"`
	SimulatedFailures int64          `json:"simulatedFailures"`
	ActiveMocks       int            `json:"activeMocks"`
	TotalMocks        int            `json:"totalMocks"`
	AvgResponseTimeMs float64        `json:"avgResponseTimeMs"`
	RequestsPerSecond float64        `json:"requestsPerSecond"`
	StartTime         time.Time      `json:"startTime"`
	Uptime            string         `json:"uptime"`
	TopEndpoints      []EndpointStat `json:"topEndpoints"`
	RecentErrors      []ErrorStat    `json:"recentErrors"`
	RequestsByHour    []HourlyStat   `json:"requestsByHour"`
}

// EndpointStat represents statistics for a mocked endpoint
type EndpointStat struct {
	EndpointID        string           `json:"endpointId"`
	Method            string           `json:"method"`
	Path              string           `json:"path"`
	TotalRequests     int64            `json:"totalRequests"`
	TotalErrors       int64            `json:"totalErrors"`
	Timeouts          int64            `json:"timeouts"`
	NetworkErrors     int64            `json:"networkErrors"`
	ByStrategy        map[string]int64 `json:"byStrategy"`
	AvgResponseTimeMs float64          `json:"avgResponseTimeMs"`
	MinResponseTimeMs float64          `json:"minResponseTimeMs"`
	MaxResponseTimeMs float64          `json:"maxResponseTimeMs"`
	LastRequestTime   string           `json:"lastRequestTime,omitempty"`
}

// ErrorStat represents an error occurrence
type ErrorStat struct {
	Timestamp  time.Time `json:"timestamp"`
	EndpointID string    `json:"endpointId"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	StatusCode int       `json:"statusCode"`
	Error      string    `json:"error"`
}

// HourlyStat represents hourly request statistics
type HourlyStat struct {
	Hour     string `json:"hour"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

// AtomicEndpointStat is a thread-safe version of endpoint statistics
type AtomicEndpointStat struct {
	EndpointID      string
	Method          string
	Path            string
	TotalRequests   atomic.Int64
	TotalErrors     atomic.Int64
	Timeouts        atomic.Int64
	NetworkErrors   atomic.Int64
	TotalTimeNs     atomic.Int64
	MinTimeNs       atomic.Int64
	MaxTimeNs       atomic.Int64
	LastRequestTime atomic.Value // stores time.Time

	strategyMu sync.Mutex
	strategies map[string]int64
}

// AddStrategy counts one response produced by the named strategy
func (a *AtomicEndpointStat) AddStrategy(strategy string) {
	a.strategyMu.Lock()
	defer a.strategyMu.Unlock()
	if a.strategies == nil {
		a.strategies = make(map[string]int64)
	}
	a.strategies[strategy]++
}

// ToEndpointStat converts to a regular EndpointStat
func (a *AtomicEndpointStat) ToEndpointStat() EndpointStat {
	totalReqs := a.TotalRequests.Load()
	totalTimeNs := a.TotalTimeNs.Load()
	var avgMs float64
	if totalReqs > 0 {
		avgMs = float64(totalTimeNs) / float64(totalReqs) / 1e6
	}

	var lastReqTime string
	if t, ok := a.LastRequestTime.Load().(time.Time); ok && !t.IsZero() {
		lastReqTime = t.Format(time.RFC3339)
	}

	a.strategyMu.Lock()
	byStrategy := make(map[string]int64, len(a.strategies))
	for k, v := range a.strategies {
		byStrategy[k] = v
	}
	a.strategyMu.Unlock()

	return EndpointStat{
		EndpointID:        a.EndpointID,
		Method:            a.Method,
		Path:              a.Path,
		TotalRequests:     totalReqs,
		TotalErrors:       a.TotalErrors.Load(),
		Timeouts:          a.Timeouts.Load(),
		NetworkErrors:     a.NetworkErrors.Load(),
		ByStrategy:        byStrategy,
		AvgResponseTimeMs: avgMs,
		MinResponseTimeMs: float64(a.MinTimeNs.Load()) / 1e6,
		MaxResponseTimeMs: float64(a.MaxTimeNs.Load()) / 1e6,
		LastRequestTime:   lastReqTime,
	}
}
