package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prasenjit/go-mocksim/internal/models"
)

// MemoryStorage implements Storage interface with in-memory storage.
// Records are copied on the way in and out so callers never share them.
type MemoryStorage struct {
	mu         sync.RWMutex
	mocks      map[string]*models.MockConfig
	byEndpoint map[string]string // endpointID -> mock ID
	apiModels  map[string]*models.ApiModel
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		mocks:      make(map[string]*models.MockConfig),
		byEndpoint: make(map[string]string),
		apiModels:  make(map[string]*models.ApiModel),
	}
}

func cloneMock(cfg *models.MockConfig) *models.MockConfig {
	c := *cfg
	return &c
}

func cloneModel(m *models.ApiModel) *models.ApiModel {
	c := *m
	c.Fields = append([]models.ApiField(nil), m.Fields...)
	return &c
}

// CreateMock stores a new config
func (m *MemoryStorage) CreateMock(cfg *models.MockConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mocks[cfg.ID]; exists {
		return fmt.Errorf("mock %s: %w", cfg.ID, ErrAlreadyExists)
	}
	if other, exists := m.byEndpoint[cfg.EndpointID]; exists {
		return fmt.Errorf("endpoint %s already mocked by %s: %w", cfg.EndpointID, other, ErrAlreadyExists)
	}

	m.mocks[cfg.ID] = cloneMock(cfg)
	m.byEndpoint[cfg.EndpointID] = cfg.ID
	return nil
}

// GetMock retrieves a config by ID
func (m *MemoryStorage) GetMock(id string) (*models.MockConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, exists := m.mocks[id]
	if !exists {
		return nil, fmt.Errorf("mock %s: %w", id, ErrNotFound)
	}
	return cloneMock(cfg), nil
}

// GetMockByEndpoint retrieves the config of an endpoint
func (m *MemoryStorage) GetMockByEndpoint(endpointID string) (*models.MockConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byEndpoint[endpointID]
	if !exists {
		return nil, fmt.Errorf("mock for endpoint %s: %w", endpointID, ErrNotFound)
	}
	return cloneMock(m.mocks[id]), nil
}

// GetAllMocks retrieves all configs ordered by path then method
func (m *MemoryStorage) GetAllMocks() ([]*models.MockConfig, error) {
	return m.listMocks(false), nil
}

// GetEnabledMocks retrieves all enabled configs
func (m *MemoryStorage) GetEnabledMocks() ([]*models.MockConfig, error) {
	return m.listMocks(true), nil
}

func (m *MemoryStorage) listMocks(enabledOnly bool) []*models.MockConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.MockConfig, 0, len(m.mocks))
	for _, cfg := range m.mocks {
		if enabledOnly && !cfg.Enabled {
			continue
		}
		out = append(out, cloneMock(cfg))
	}
	sortMocks(out)
	return out
}

func sortMocks(mocks []*models.MockConfig) {
	sort.Slice(mocks, func(i, j int) bool {
		if mocks[i].Path != mocks[j].Path {
			return mocks[i].Path < mocks[j].Path
		}
		if mocks[i].Method != mocks[j].Method {
			return mocks[i].Method < mocks[j].Method
		}
		return mocks[i].ID < mocks[j].ID
	})
}

// UpdateMock replaces a stored config
func (m *MemoryStorage) UpdateMock(cfg *models.MockConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.mocks[cfg.ID]
	if !exists {
		return fmt.Errorf("mock %s: %w", cfg.ID, ErrNotFound)
	}
	if cfg.EndpointID != existing.EndpointID {
		if other, taken := m.byEndpoint[cfg.EndpointID]; taken {
			return fmt.Errorf("endpoint %s already mocked by %s: %w", cfg.EndpointID, other, ErrAlreadyExists)
		}
		delete(m.byEndpoint, existing.EndpointID)
		m.byEndpoint[cfg.EndpointID] = cfg.ID
	}

	m.mocks[cfg.ID] = cloneMock(cfg)
	return nil
}

// DeleteMock deletes a config
func (m *MemoryStorage) DeleteMock(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, exists := m.mocks[id]
	if !exists {
		return fmt.Errorf("mock %s: %w", id, ErrNotFound)
	}

	delete(m.byEndpoint, cfg.EndpointID)
	delete(m.mocks, id)
	return nil
}

// DeleteMocksByEndpoint deletes the configs of an endpoint
func (m *MemoryStorage) DeleteMocksByEndpoint(endpointID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byEndpoint[endpointID]
	if !exists {
		return 0, nil
	}

	delete(m.mocks, id)
	delete(m.byEndpoint, endpointID)
	return 1, nil
}

// SaveModel creates or replaces a model
func (m *MemoryStorage) SaveModel(model *models.ApiModel) error {
	if model.Name == "" {
		return fmt.Errorf("model name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiModels[model.Name] = cloneModel(model)
	return nil
}

// GetModel retrieves a model by name
func (m *MemoryStorage) GetModel(name string) (*models.ApiModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	model, exists := m.apiModels[name]
	if !exists {
		return nil, fmt.Errorf("model %s: %w", name, ErrNotFound)
	}
	return cloneModel(model), nil
}

// ListModels retrieves all models sorted by name
func (m *MemoryStorage) ListModels() ([]*models.ApiModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ApiModel, 0, len(m.apiModels))
	for _, model := range m.apiModels {
		out = append(out, cloneModel(model))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteModel deletes a model
func (m *MemoryStorage) DeleteModel(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.apiModels[name]; !exists {
		return fmt.Errorf("model %s: %w", name, ErrNotFound)
	}

	delete(m.apiModels, name)
	return nil
}

// Close closes the storage (no-op for memory storage)
func (m *MemoryStorage) Close() error {
	return nil
}
