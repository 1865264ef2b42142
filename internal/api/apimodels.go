package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prasenjit/go-mocksim/internal/faker"
	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/models"
)

// maxGenerateCount bounds a single generate request
const maxGenerateCount = 1000

// ListModels returns all API models
func (h *Handler) ListModels(c *gin.Context) {
	list, err := h.store.ListModels()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []*models.ApiModel{}
	}

	c.JSON(http.StatusOK, list)
}

// SaveModel creates or replaces an API model. The name in the path wins.
func (h *Handler) SaveModel(c *gin.Context) {
	var model models.ApiModel
	if err := c.ShouldBindJSON(&model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if name := c.Param("name"); name != "" {
		model.Name = name
	}
	if model.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model name is required"})
		return
	}

	if err := h.store.SaveModel(&model); err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}
	c.JSON(status, model)
}

// GetModel returns a single API model
func (h *Handler) GetModel(c *gin.Context) {
	model, err := h.store.GetModel(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	c.JSON(http.StatusOK, model)
}

// DeleteModel deletes an API model
func (h *Handler) DeleteModel(c *gin.Context) {
	if err := h.store.DeleteModel(c.Param("name")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Model deleted"})
}

// ImportInput is the body of an OpenAPI import
type ImportInput struct {
	Content  string `json:"content" binding:"required"`
	BasePath string `json:"basePath"`
	// CreateMocks adds a disabled mock for every operation without one
	CreateMocks bool `json:"createMocks"`
}

// ImportResult summarises an OpenAPI import
type ImportResult struct {
	Title        string   `json:"title"`
	Version      string   `json:"version"`
	Models       []string `json:"models"`
	MocksCreated []string `json:"mocksCreated"`
	MocksSkipped []string `json:"mocksSkipped"`
}

// ImportModels imports the schemas of an OpenAPI document, optionally
// seeding mock configs for its operations
func (h *Handler) ImportModels(c *gin.Context) {
	var input ImportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parsed, err := h.parser.Parse(input.Content, input.BasePath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OpenAPI spec: " + err.Error()})
		return
	}

	result := ImportResult{
		Title:        parsed.Title,
		Version:      parsed.Version,
		Models:       make([]string, 0, len(parsed.Models)),
		MocksCreated: []string{},
		MocksSkipped: []string{},
	}

	for _, model := range parsed.Models {
		if err := h.store.SaveModel(model); err != nil {
			abortWithError(c, err)
			return
		}
		result.Models = append(result.Models, model.Name)
	}

	if input.CreateMocks {
		now := time.Now()
		for _, cfg := range parsed.Endpoints {
			if _, err := h.store.GetMockByEndpoint(cfg.EndpointID); err == nil {
				result.MocksSkipped = append(result.MocksSkipped, cfg.EndpointID)
				continue
			}
			cfg.ID = uuid.New().String()
			cfg.CreatedAt = now
			cfg.UpdatedAt = now
			if err := h.store.CreateMock(cfg); err != nil {
				abortWithError(c, err)
				return
			}
			result.MocksCreated = append(result.MocksCreated, cfg.EndpointID)
		}
		h.reloadRoutes()
	}

	logging.L.Infow("openapi document imported",
		"title", parsed.Title,
		"models", len(result.Models),
		"mocksCreated", len(result.MocksCreated),
	)

	c.JSON(http.StatusCreated, result)
}

// GenerateInput is the body of a generate request
type GenerateInput struct {
	Count    int                       `json:"count"`
	Seed     *int64                    `json:"seed"`
	Template map[string]any            `json:"template"`
	Options  *models.GenerationOptions `json:"options"`
}

// GenerateData returns fake documents for a model. A count above one
// returns an array; otherwise a single object.
func (h *Handler) GenerateData(c *gin.Context) {
	var input GenerateInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if input.Count < 0 || input.Count > maxGenerateCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and 1000"})
		return
	}

	all, err := h.store.ListModels()
	if err != nil {
		abortWithError(c, err)
		return
	}
	model := models.FindModel(all, c.Param("name"))
	if model == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	opts := h.generator.Merge(input.Options)
	if input.Seed != nil {
		opts.Seed = input.Seed
	}

	if input.Count <= 1 {
		c.JSON(http.StatusOK, faker.GenerateFromTemplate(model, all, input.Template, opts))
		return
	}

	items := faker.GenerateMultiple(model, all, input.Count, opts)
	for _, item := range items {
		for k, v := range input.Template {
			item[k] = v
		}
	}
	c.JSON(http.StatusOK, items)
}
