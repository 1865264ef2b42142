package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/metrics"
	"github.com/prasenjit/go-mocksim/internal/models"
	"github.com/prasenjit/go-mocksim/internal/network"
	"github.com/prasenjit/go-mocksim/internal/resolver"
	"github.com/prasenjit/go-mocksim/internal/scenario"
	"github.com/prasenjit/go-mocksim/internal/stats"
	"github.com/prasenjit/go-mocksim/internal/storage"
	"github.com/prasenjit/go-mocksim/internal/tracing"
)

// SimulatedFailureHeader names the simulated failure when the connection
// cannot be dropped for real
const SimulatedFailureHeader = "X-Mock-Simulated-Failure"

// maxBodyBytes bounds request bodies read for condition evaluation
const maxBodyBytes = 10 << 20

// Engine serves mocked endpoints
type Engine struct {
	store          storage.Storage
	resolver       *resolver.Resolver
	statsCollector *stats.Collector
	tracingService *tracing.Service
	metrics        *metrics.Metrics
	mu             sync.RWMutex
	routes         map[string][]*route // method -> routes
}

// route represents a registered mock
type route struct {
	mock      *models.MockConfig
	pattern   *regexp.Regexp
	paramKeys []string
}

// NewEngine creates a new proxy engine. m may be nil when metrics are off.
func NewEngine(store storage.Storage, res *resolver.Resolver, statsCollector *stats.Collector, tracingService *tracing.Service, m *metrics.Metrics) *Engine {
	e := &Engine{
		store:          store,
		resolver:       res,
		statsCollector: statsCollector,
		tracingService: tracingService,
		metrics:        m,
		routes:         make(map[string][]*route),
	}

	if err := e.ReloadRoutes(); err != nil {
		logging.L.Errorw("failed to load routes", "error", err)
	}

	return e
}

// ReloadRoutes rebuilds the routing table from the enabled mocks
func (e *Engine) ReloadRoutes() error {
	mocks, err := e.store.GetEnabledMocks()
	if err != nil {
		return err
	}

	routes := make(map[string][]*route)
	for _, mock := range mocks {
		r := &route{mock: mock}
		r.pattern, r.paramKeys = buildPathPattern(mock.Path)
		if r.pattern == nil {
			logging.L.Warnw("skipping mock with invalid path", "endpointId", mock.EndpointID, "path", mock.Path)
			continue
		}

		method := strings.ToUpper(mock.Method)
		routes[method] = append(routes[method], r)
	}

	for method := range routes {
		sortRoutes(routes[method])
	}

	e.mu.Lock()
	e.routes = routes
	e.mu.Unlock()

	logging.L.Debugw("routes reloaded", "mocks", len(mocks))
	return nil
}

// paramPattern matches escaped {param} segments and :param segments
var paramPattern = regexp.MustCompile(`\\\{([^}]+)\\\}|:([A-Za-z_][A-Za-z0-9_]*)`)

// buildPathPattern converts a mock path like /users/{id} or /users/:id to a regex
func buildPathPattern(pathPattern string) (*regexp.Regexp, []string) {
	if !strings.HasPrefix(pathPattern, "/") {
		pathPattern = "/" + pathPattern
	}

	var paramKeys []string
	escaped := regexp.QuoteMeta(pathPattern)

	result := paramPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		sub := paramPattern.FindStringSubmatch(match)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		paramKeys = append(paramKeys, name)
		return `([^/]+)`
	})

	pattern, err := regexp.Compile("^" + result + "/?$")
	if err != nil {
		return nil, nil
	}
	return pattern, paramKeys
}

// sortRoutes sorts routes by specificity (routes without parameters come first)
func sortRoutes(routes []*route) {
	sort.SliceStable(routes, func(i, j int) bool {
		iParams := len(routes[i].paramKeys)
		jParams := len(routes[j].paramKeys)
		if iParams != jParams {
			return iParams < jParams
		}
		return len(routes[i].mock.Path) > len(routes[j].mock.Path)
	})
}

// Handler returns an http.Handler for the proxy engine
func (e *Engine) Handler() http.Handler {
	return http.HandlerFunc(e.ServeHTTP)
}

// ServeHTTP answers a request from the matching mock
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	e.mu.RLock()
	matched, pathParams := e.matchRoute(r.Method, r.URL.Path)
	e.mu.RUnlock()

	if matched == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no mock configured for %s %s", r.Method, r.URL.Path),
		})
		return
	}

	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}

	req := &resolver.Request{
		PathParams:  pathParams,
		QueryParams: r.URL.Query(),
		Headers:     r.Header,
		Body:        body,
	}

	mock := matched.mock
	result, err := e.resolver.Resolve(r.Context(), mock, req)
	if err != nil {
		e.handleError(w, r, mock, body, result, err, startTime)
		return
	}

	written := writeResponse(w, result.Response)
	duration := time.Since(startTime)
	status := result.Response.StatusCode

	e.statsCollector.RecordRequest(mock.EndpointID, mock.Method, mock.Path, result.Strategy, duration, status >= 400)
	e.metrics.ObserveResponse(mock.EndpointID, result.Strategy, status, result.Delay)
	if result.Transitioned {
		e.metrics.ObserveTransition(mock.EndpointID)
	}

	e.tracingService.RecordTrace(&models.Trace{
		EndpointID:   mock.EndpointID,
		MockConfigID: mock.ID,
		Timestamp:    startTime,
		Duration:     duration.Nanoseconds(),
		Outcome:      models.OutcomeResponse,
		Strategy:     result.Strategy,
		State:        result.State,
		CallCount:    result.CallCount,
		DelayMs:      result.Delay.Milliseconds(),
		Request:      traceRequest(r, body),
		Response: models.TraceResponse{
			StatusCode: status,
			Headers:    headersToMap(w.Header()),
			Body:       string(written),
		},
	})
}

func (e *Engine) handleError(w http.ResponseWriter, r *http.Request, mock *models.MockConfig, body []byte, result *resolver.Result, err error, startTime time.Time) {
	trace := &models.Trace{
		EndpointID:   mock.EndpointID,
		MockConfigID: mock.ID,
		Timestamp:    startTime,
		Error:        err.Error(),
		Request:      traceRequest(r, body),
	}
	if result != nil {
		trace.Strategy = result.Strategy
		trace.State = result.State
		trace.CallCount = result.CallCount
	}

	var transportErr *network.TransportError
	var configErr *scenario.ConfigError

	switch {
	case errors.As(err, &transportErr):
		kind := string(transportErr.Kind)
		trace.Outcome = models.OutcomeNetworkError
		if transportErr.Timeout {
			kind = models.OutcomeTimeout
			trace.Outcome = models.OutcomeTimeout
			trace.DelayMs = transportErr.After.Milliseconds()
		}

		status := dropConnection(w, transportErr)
		trace.Response.StatusCode = status
		e.statsCollector.RecordFailure(mock.EndpointID, mock.Method, mock.Path, transportErr.Timeout, time.Since(startTime))
		e.metrics.ObserveFailure(mock.EndpointID, kind)
		logging.L.Debugw("simulated transport failure", "endpointId", mock.EndpointID, "kind", kind)

	case errors.As(err, &configErr):
		trace.Outcome = models.OutcomeConfigError
		trace.Response.StatusCode = http.StatusInternalServerError
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		e.statsCollector.RecordRequest(mock.EndpointID, mock.Method, mock.Path, resolver.StrategyScenario, time.Since(startTime), true)
		e.statsCollector.RecordError(mock.EndpointID, r.URL.Path, r.Method, http.StatusInternalServerError, err.Error())
		logging.L.Errorw("mock configuration error", "endpointId", mock.EndpointID, "error", err)

	case errors.Is(err, resolver.ErrMockDisabled):
		// Config was switched off after the routing table was built
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return

	default:
		// Client went away during the delay. State changes made by the call stay.
		logging.L.Debugw("mock call abandoned", "endpointId", mock.EndpointID, "error", err)
		return
	}

	trace.Duration = time.Since(startTime).Nanoseconds()
	e.tracingService.RecordTrace(trace)
}

// dropConnection emulates a transport failure by closing the client
// connection without a response. It falls back to a gateway error status
// when the writer cannot be hijacked and returns the status written, 0 if none.
func dropConnection(w http.ResponseWriter, failure *network.TransportError) int {
	label := string(failure.Kind)
	status := http.StatusBadGateway
	if failure.Timeout {
		label = models.OutcomeTimeout
		status = http.StatusGatewayTimeout
	}

	if hj, ok := w.(http.Hijacker); ok {
		conn, _, err := hj.Hijack()
		if err == nil {
			if tcp, ok := conn.(*net.TCPConn); ok && failure.Kind == models.NetworkConnectionReset {
				_ = tcp.SetLinger(0)
			}
			_ = conn.Close()
			return 0
		}
	}

	w.Header().Set(SimulatedFailureHeader, label)
	writeJSON(w, status, map[string]string{"error": failure.Error()})
	return status
}

// writeResponse writes a mock response and returns the body bytes sent
func writeResponse(w http.ResponseWriter, resp models.MockResponse) []byte {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	var data []byte
	switch body := resp.Body.(type) {
	case nil:
	case string:
		data = []byte(body)
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			logging.L.Errorw("failed to encode mock body", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode response body"})
			return nil
		}
		data = encoded
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(data) > 0 {
		_, _ = w.Write(data)
	}
	return data
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func traceRequest(r *http.Request, body []byte) models.TraceRequest {
	return models.TraceRequest{
		Method:  r.Method,
		URL:     r.URL.String(),
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: headersToMap(r.Header),
		Body:    string(body),
	}
}

// matchRoute finds a matching route for the given method and path
func (e *Engine) matchRoute(method, requestPath string) (*route, map[string]string) {
	routes, ok := e.routes[strings.ToUpper(method)]
	if !ok {
		return nil, nil
	}

	for _, r := range routes {
		matches := r.pattern.FindStringSubmatch(requestPath)
		if matches == nil {
			continue
		}

		pathParams := make(map[string]string, len(r.paramKeys))
		for i, key := range r.paramKeys {
			if i+1 < len(matches) {
				pathParams[key] = matches[i+1]
			}
		}

		return r, pathParams
	}

	return nil, nil
}

// headersToMap copies http.Header into a plain map
func headersToMap(h http.Header) map[string][]string {
	result := make(map[string][]string, len(h))
	for key, values := range h {
		result[key] = append([]string(nil), values...)
	}
	return result
}

// MatchRoute returns the mock serving method and path, nil when none does
func (e *Engine) MatchRoute(method, path string) (*models.MockConfig, map[string]string) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matched, pathParams := e.matchRoute(method, path)
	if matched == nil {
		return nil, nil
	}
	return matched.mock, pathParams
}

// GetRegisteredRoutes lists the served paths per method in match order
func (e *Engine) GetRegisteredRoutes() map[string][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[string][]string, len(e.routes))
	for method, routes := range e.routes {
		for _, r := range routes {
			result[method] = append(result[method], r.mock.Path)
		}
	}
	return result
}
