package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prasenjit/go-mocksim/internal/faker"
	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/metrics"
	"github.com/prasenjit/go-mocksim/internal/models"
	"github.com/prasenjit/go-mocksim/internal/parser"
	"github.com/prasenjit/go-mocksim/internal/proxy"
	"github.com/prasenjit/go-mocksim/internal/resolver"
	"github.com/prasenjit/go-mocksim/internal/stats"
	"github.com/prasenjit/go-mocksim/internal/storage"
	"github.com/prasenjit/go-mocksim/internal/tracing"
)

// Handler handles API requests
type Handler struct {
	store          storage.Storage
	resolver       *resolver.Resolver
	statsCollector *stats.Collector
	tracingService *tracing.Service
	proxyEngine    *proxy.Engine
	metrics        *metrics.Metrics
	parser         *parser.Parser
	generator      faker.Options
}

// NewHandler creates a new API handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		store:          deps.Store,
		resolver:       deps.Resolver,
		statsCollector: deps.Stats,
		tracingService: deps.Tracing,
		proxyEngine:    deps.Proxy,
		metrics:        deps.Metrics,
		parser:         parser.NewParser(),
		generator:      deps.Generator,
	}
}

// errorStatus maps storage and validation errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func (h *Handler) reloadRoutes() {
	if err := h.proxyEngine.ReloadRoutes(); err != nil {
		logging.L.Errorw("failed to reload routes", "error", err)
	}
}

// ListMocks returns a summary of every mock config
func (h *Handler) ListMocks(c *gin.Context) {
	var (
		mocks []*models.MockConfig
		err   error
	)
	if c.Query("enabled") == "true" {
		mocks, err = h.store.GetEnabledMocks()
	} else {
		mocks, err = h.store.GetAllMocks()
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	result := make([]models.MockConfigSummary, len(mocks))
	for i, mock := range mocks {
		result[i] = mock.Summary()
	}

	c.JSON(http.StatusOK, result)
}

// CreateMock creates a new mock config
func (h *Handler) CreateMock(c *gin.Context) {
	var cfg models.MockConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := prepareMock(&cfg); err != nil {
		abortWithError(c, err)
		return
	}
	cfg.ID = uuid.New().String()
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = cfg.CreatedAt

	if err := h.store.CreateMock(&cfg); err != nil {
		abortWithError(c, err)
		return
	}

	h.reloadRoutes()

	c.JSON(http.StatusCreated, cfg)
}

// prepareMock fills defaults and validates a config about to be saved
func prepareMock(cfg *models.MockConfig) error {
	if cfg.Path == "" {
		return fmt.Errorf("%w: path is required", models.ErrInvalidConfig)
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if cfg.StatusCode == 0 {
		cfg.StatusCode = http.StatusOK
	}
	return cfg.Validate()
}

// GetMock returns a single mock config
func (h *Handler) GetMock(c *gin.Context) {
	cfg, err := h.store.GetMock(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GetEndpointMock returns the mock config of an endpoint
func (h *Handler) GetEndpointMock(c *gin.Context) {
	cfg, err := h.store.GetMockByEndpoint(c.Param("endpointId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// ReplaceMock replaces a mock config; runtime state of the endpoint is reset
func (h *Handler) ReplaceMock(c *gin.Context) {
	existing, err := h.store.GetMock(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	var cfg models.MockConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := prepareMock(&cfg); err != nil {
		abortWithError(c, err)
		return
	}
	cfg.ID = existing.ID
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now()

	if err := h.store.UpdateMock(&cfg); err != nil {
		abortWithError(c, err)
		return
	}

	h.resetEndpoints(existing.EndpointID, cfg.EndpointID)
	h.reloadRoutes()

	c.JSON(http.StatusOK, cfg)
}

// UpdateMock applies a partial update. State is reset when the endpoint id
// or the scripted responses change.
func (h *Handler) UpdateMock(c *gin.Context) {
	cfg, err := h.store.GetMock(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	var update models.MockConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	previousEndpoint := cfg.EndpointID
	update.Apply(cfg)
	if err := prepareMock(cfg); err != nil {
		abortWithError(c, err)
		return
	}
	cfg.UpdatedAt = time.Now()

	if err := h.store.UpdateMock(cfg); err != nil {
		abortWithError(c, err)
		return
	}

	if update.EndpointID != nil || update.ScenarioConfig != nil || update.SequenceResponses != nil {
		h.resetEndpoints(previousEndpoint, cfg.EndpointID)
	}
	h.reloadRoutes()

	c.JSON(http.StatusOK, cfg)
}

// DeleteMock deletes a mock config and the runtime state of its endpoint
func (h *Handler) DeleteMock(c *gin.Context) {
	cfg, err := h.store.GetMock(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	if err := h.store.DeleteMock(cfg.ID); err != nil {
		abortWithError(c, err)
		return
	}

	h.resetEndpoints(cfg.EndpointID)
	h.reloadRoutes()

	c.JSON(http.StatusOK, gin.H{"message": "Mock deleted"})
}

// DeleteEndpointMocks removes every mock of an endpoint along with its
// state, statistics and traces
func (h *Handler) DeleteEndpointMocks(c *gin.Context) {
	endpointID := c.Param("endpointId")

	deleted, err := h.store.DeleteMocksByEndpoint(endpointID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.resetEndpoints(endpointID)
	h.statsCollector.ResetEndpoint(endpointID)
	h.tracingService.ClearTracesByEndpoint(endpointID)
	h.reloadRoutes()

	logging.L.Infow("endpoint mocks deleted", "endpointId", endpointID, "count", deleted)

	c.JSON(http.StatusOK, gin.H{"endpointId": endpointID, "deleted": deleted})
}

// resetEndpoints clears the scenario state and call counters of the given endpoints
func (h *Handler) resetEndpoints(endpointIDs ...string) {
	engine := h.resolver.Engine()
	seen := make(map[string]bool, len(endpointIDs))
	for _, id := range endpointIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		engine.ResetEndpoint(id)
	}
	h.metrics.ObserveReset(len(seen))
}

// MockState is the runtime state of a mocked endpoint
type MockState struct {
	MockID       string `json:"mockId"`
	EndpointID   string `json:"endpointId"`
	CallCount    int    `json:"callCount"`
	CurrentState string `json:"currentState,omitempty"`
}

// GetMockState returns the call count and scenario state of a mock
func (h *Handler) GetMockState(c *gin.Context) {
	cfg, err := h.store.GetMock(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	engine := h.resolver.Engine()
	state := MockState{
		MockID:     cfg.ID,
		EndpointID: cfg.EndpointID,
		CallCount:  engine.CallCount(cfg.EndpointID),
	}
	if current, ok := engine.CurrentState(cfg.EndpointID); ok {
		state.CurrentState = current
	}

	c.JSON(http.StatusOK, state)
}

// ResetMockState resets the call count and scenario state of a mock
func (h *Handler) ResetMockState(c *gin.Context) {
	cfg, err := h.store.GetMock(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mock not found"})
		return
	}

	h.resetEndpoints(cfg.EndpointID)

	c.JSON(http.StatusOK, gin.H{"message": "Mock state reset"})
}

// ListState returns the runtime state of every endpoint seen since the last reset
func (h *Handler) ListState(c *gin.Context) {
	c.JSON(http.StatusOK, h.resolver.Engine().States())
}

// ResetAllState resets the runtime state of every endpoint
func (h *Handler) ResetAllState(c *gin.Context) {
	mocks, err := h.store.GetAllMocks()
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.resolver.Engine().ResetAll()
	h.metrics.ObserveReset(len(mocks))

	c.JSON(http.StatusOK, gin.H{"message": "All state reset"})
}

// GetGlobalStats returns global statistics
func (h *Handler) GetGlobalStats(c *gin.Context) {
	enabled, _ := h.store.GetEnabledMocks()
	all, _ := h.store.GetAllMocks()

	stats := h.statsCollector.GetGlobalStats(len(enabled), len(all))
	c.JSON(http.StatusOK, stats)
}

// GetEndpointStats returns statistics for an endpoint
func (h *Handler) GetEndpointStats(c *gin.Context) {
	stats := h.statsCollector.GetEndpointStats(c.Param("endpointId"))
	if stats == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No statistics available"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ResetStats resets all statistics
func (h *Handler) ResetStats(c *gin.Context) {
	h.statsCollector.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "Statistics reset"})
}

// ListTraces returns traces
func (h *Handler) ListTraces(c *gin.Context) {
	filter := &models.TraceFilter{
		Limit:      100, // Default limit
		EndpointID: c.Query("endpointId"),
		Method:     c.Query("method"),
		Outcome:    c.Query("outcome"),
		Strategy:   c.Query("strategy"),
	}

	if v := c.Query("statusCode"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "statusCode must be a number"})
			return
		}
		filter.StatusCode = code
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative number"})
			return
		}
		filter.Limit = limit
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		filter.StartTime = since
	}

	traces := h.tracingService.GetTraces(filter)
	c.JSON(http.StatusOK, traces)
}

// GetTrace returns a single trace
func (h *Handler) GetTrace(c *gin.Context) {
	trace := h.tracingService.GetTrace(c.Param("id"))
	if trace == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trace not found"})
		return
	}

	c.JSON(http.StatusOK, trace)
}

// ClearTraces clears all traces, or those of one endpoint
func (h *Handler) ClearTraces(c *gin.Context) {
	if endpointID := c.Query("endpointId"); endpointID != "" {
		h.tracingService.ClearTracesByEndpoint(endpointID)
	} else {
		h.tracingService.ClearTraces()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Traces cleared"})
}

// GetRoutes returns registered routes
func (h *Handler) GetRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, h.proxyEngine.GetRegisteredRoutes())
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"tracing":   h.tracingService.GetStats(),
	})
}
