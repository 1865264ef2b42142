package stats

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prasenjit/go-mocksim/internal/models"
)

// Collector aggregates request counters per mocked endpoint plus hourly
// buckets and a bounded list of recent errors.
type Collector struct {
	mu        sync.RWMutex
	now       func() time.Time
	startTime time.Time
	endpoints map[string]*models.AtomicEndpointStat

	recentErrors []models.ErrorStat
	errorCap     int

	hours     map[int64]*hourlyCounter // unix second of the hour's start
	retention time.Duration
}

type hourlyCounter struct {
	requests int64
	errors   int64
}

const (
	defaultErrorCap  = 100
	defaultRetention = 7 * 24 * time.Hour
)

// NewCollector creates a new statistics collector
func NewCollector() *Collector {
	c := &Collector{
		now:       time.Now,
		errorCap:  defaultErrorCap,
		retention: defaultRetention,
	}
	c.resetLocked()
	return c
}

func (c *Collector) resetLocked() {
	c.startTime = c.now()
	c.endpoints = make(map[string]*models.AtomicEndpointStat)
	c.recentErrors = make([]models.ErrorStat, 0, c.errorCap)
	c.hours = make(map[int64]*hourlyCounter)
}

// RecordRequest records a served mock response. strategy names the pipeline
// stage that produced it; isError marks 4xx and 5xx responses.
func (c *Collector) RecordRequest(endpointID, method, path, strategy string, duration time.Duration, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endpoint(endpointID, method, path, duration, isError).AddStrategy(strategy)
}

// RecordFailure records a simulated timeout or network error
func (c *Collector) RecordFailure(endpointID, method, path string, timeout bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stat := c.endpoint(endpointID, method, path, duration, true)
	if timeout {
		stat.Timeouts.Add(1)
	} else {
		stat.NetworkErrors.Add(1)
	}
}

// endpoint counts one call against endpointID and its hour bucket. Callers
// hold mu.
func (c *Collector) endpoint(endpointID, method, path string, duration time.Duration, isError bool) *models.AtomicEndpointStat {
	ns := duration.Nanoseconds()
	now := c.now()

	stat, ok := c.endpoints[endpointID]
	if !ok {
		stat = &models.AtomicEndpointStat{EndpointID: endpointID, Method: method, Path: path}
		stat.MinTimeNs.Store(ns)
		c.endpoints[endpointID] = stat
	}

	stat.TotalRequests.Add(1)
	stat.TotalTimeNs.Add(ns)
	stat.LastRequestTime.Store(now)
	lowerTo(&stat.MinTimeNs, ns)
	raiseTo(&stat.MaxTimeNs, ns)
	if isError {
		stat.TotalErrors.Add(1)
	}

	hour := now.Truncate(time.Hour).Unix()
	bucket, ok := c.hours[hour]
	if !ok {
		bucket = &hourlyCounter{}
		c.hours[hour] = bucket
		c.pruneHours(hour)
	}
	bucket.requests++
	if isError {
		bucket.errors++
	}

	return stat
}

func lowerTo(v *atomic.Int64, n int64) {
	for cur := v.Load(); n < cur && !v.CompareAndSwap(cur, n); cur = v.Load() {
	}
}

func raiseTo(v *atomic.Int64, n int64) {
	for cur := v.Load(); n > cur && !v.CompareAndSwap(cur, n); cur = v.Load() {
	}
}

// pruneHours drops buckets that fell out of the retention window ending at current
func (c *Collector) pruneHours(current int64) {
	cutoff := current - int64(c.retention/time.Second)
	for hour := range c.hours {
		if hour <= cutoff {
			delete(c.hours, hour)
		}
	}
}

// RecordError remembers a failed invocation, keeping the newest errorCap entries
func (c *Collector) RecordError(endpointID, path, method string, statusCode int, err string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.recentErrors) >= c.errorCap {
		drop := len(c.recentErrors) - c.errorCap + 1
		c.recentErrors = append(c.recentErrors[:0], c.recentErrors[drop:]...)
	}
	c.recentErrors = append(c.recentErrors, models.ErrorStat{
		Timestamp:  c.now(),
		EndpointID: endpointID,
		Path:       path,
		Method:     method,
		StatusCode: statusCode,
		Error:      err,
	})
}

// GetGlobalStats summarizes every endpoint. The mock counts come from
// storage and are passed through as is.
func (c *Collector) GetGlobalStats(activeMocks, totalMocks int) *models.GlobalStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g := &models.GlobalStats{
		ActiveMocks:    activeMocks,
		TotalMocks:     totalMocks,
		StartTime:      c.startTime,
		RecentErrors:   slices.Clone(c.recentErrors),
		RequestsByHour: c.lastDay(),
	}

	var totalTimeNs int64
	all := make([]models.EndpointStat, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		stat := ep.ToEndpointStat()
		all = append(all, stat)
		g.TotalRequests += stat.TotalRequests
		g.TotalErrors += stat.TotalErrors
		g.SimulatedFailures += stat.Timeouts + stat.NetworkErrors
		totalTimeNs += ep.TotalTimeNs.Load()
	}

	// Busiest first, ties by id so the order is stable
	slices.SortFunc(all, func(a, b models.EndpointStat) int {
		if a.TotalRequests != b.TotalRequests {
			return cmp.Compare(b.TotalRequests, a.TotalRequests)
		}
		return strings.Compare(a.EndpointID, b.EndpointID)
	})
	g.TopEndpoints = all[:min(len(all), topEndpoints)]

	if g.TotalRequests > 0 {
		g.AvgResponseTimeMs = float64(totalTimeNs) / float64(g.TotalRequests) / 1e6
	}

	up := c.now().Sub(c.startTime)
	if up > 0 {
		g.RequestsPerSecond = float64(g.TotalRequests) / up.Seconds()
	}
	g.Uptime = formatDuration(up)

	return g
}

const topEndpoints = 10

// GetEndpointStats returns statistics for a single endpoint, nil if it was never called
func (c *Collector) GetEndpointStats(endpointID string) *models.EndpointStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ep, ok := c.endpoints[endpointID]
	if !ok {
		return nil
	}
	stat := ep.ToEndpointStat()
	return &stat
}

// lastDay returns 24 hourly slots ending with the current hour
func (c *Collector) lastDay() []models.HourlyStat {
	current := c.now().Truncate(time.Hour)
	out := make([]models.HourlyStat, 24)
	for i := range out {
		hour := current.Add(-time.Duration(23-i) * time.Hour)
		out[i].Hour = hour.Format("15:00")
		if b, ok := c.hours[hour.Unix()]; ok {
			out[i].Requests, out[i].Errors = b.requests, b.errors
		}
	}
	return out
}

// ResetEndpoint drops the counters of one endpoint
func (c *Collector) ResetEndpoint(endpointID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.endpoints, endpointID)
}

// Reset clears everything and restarts the uptime clock
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// formatDuration formats a duration in a human-readable format
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return d.Round(time.Minute).String()
	case d >= time.Minute:
		return d.Round(time.Second).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
