package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prasenjit/go-mocksim/internal/faker"
	"github.com/prasenjit/go-mocksim/internal/metrics"
	"github.com/prasenjit/go-mocksim/internal/proxy"
	"github.com/prasenjit/go-mocksim/internal/resolver"
	"github.com/prasenjit/go-mocksim/internal/stats"
	"github.com/prasenjit/go-mocksim/internal/storage"
	"github.com/prasenjit/go-mocksim/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies are the services the admin API operates on
type Dependencies struct {
	Store     storage.Storage
	Resolver  *resolver.Resolver
	Stats     *stats.Collector
	Tracing   *tracing.Service
	Proxy     *proxy.Engine
	Metrics   *metrics.Metrics
	Generator faker.Options

	// Gatherer is served on MetricsPath when both are set
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// Router handles HTTP routing
type Router struct {
	engine  *gin.Engine
	deps    Dependencies
	handler *Handler
}

// NewRouter creates a new router. Requests outside the admin API are
// served by the mock engine.
func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:  gin.New(),
		deps:    deps,
		handler: NewHandler(deps),
	}

	// Setup middleware
	r.engine.Use(gin.Recovery())
	r.engine.Use(corsMiddleware())
	r.engine.Use(gin.Logger())

	r.setupRoutes()

	return r
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	api := r.engine.Group("/_api")
	{
		// Mocks
		api.GET("/mocks", r.handler.ListMocks)
		api.POST("/mocks", r.handler.CreateMock)
		api.GET("/mocks/:id", r.handler.GetMock)
		api.PUT("/mocks/:id", r.handler.ReplaceMock)
		api.PATCH("/mocks/:id", r.handler.UpdateMock)
		api.DELETE("/mocks/:id", r.handler.DeleteMock)

		// Runtime state
		api.GET("/mocks/:id/state", r.handler.GetMockState)
		api.POST("/mocks/:id/reset", r.handler.ResetMockState)
		api.GET("/state", r.handler.ListState)
		api.POST("/state/reset", r.handler.ResetAllState)

		// Endpoints
		api.GET("/endpoints/:endpointId/mock", r.handler.GetEndpointMock)
		api.DELETE("/endpoints/:endpointId/mocks", r.handler.DeleteEndpointMocks)

		// Models
		api.GET("/models", r.handler.ListModels)
		api.POST("/models", r.handler.SaveModel)
		api.POST("/models/import", r.handler.ImportModels)
		api.GET("/models/:name", r.handler.GetModel)
		api.PUT("/models/:name", r.handler.SaveModel)
		api.DELETE("/models/:name", r.handler.DeleteModel)
		api.POST("/models/:name/generate", r.handler.GenerateData)

		// Statistics
		api.GET("/stats", r.handler.GetGlobalStats)
		api.GET("/stats/endpoints/:endpointId", r.handler.GetEndpointStats)
		api.POST("/stats/reset", r.handler.ResetStats)

		// Tracing
		api.GET("/traces", r.handler.ListTraces)
		api.GET("/traces/:id", r.handler.GetTrace)
		api.DELETE("/traces", r.handler.ClearTraces)

		// Routes info
		api.GET("/routes", r.handler.GetRoutes)

		// Health
		api.GET("/health", r.handler.HealthCheck)
	}

	// WebSocket for live tracing
	wsHandler := tracing.NewWebSocketHandler(r.deps.Tracing)
	r.engine.GET("/_api/traces/stream", gin.WrapH(wsHandler))

	if r.deps.Gatherer != nil && r.deps.MetricsPath != "" {
		r.engine.GET(r.deps.MetricsPath, gin.WrapH(metrics.Handler(r.deps.Gatherer)))
	}

	// Everything else is a mocked endpoint
	r.engine.NoRoute(func(c *gin.Context) {
		r.deps.Proxy.ServeHTTP(c.Writer, c.Request)
	})
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// corsMiddleware adds CORS headers to admin API responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		// Preflight of mocked endpoints is left to their mocks
		if c.Request.Method == http.MethodOptions && strings.HasPrefix(c.Request.URL.Path, "/_api") {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
