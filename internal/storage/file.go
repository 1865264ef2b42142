package storage

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/models"
)

// FileStorage implements Storage interface with file-based persistence.
// Every record is one JSON file; reads are served from a memory cache.
type FileStorage struct {
	mu       sync.Mutex
	basePath string
	memory   *MemoryStorage
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(basePath string) (*FileStorage, error) {
	dirs := []string{
		basePath,
		filepath.Join(basePath, "mocks"),
		filepath.Join(basePath, "models"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fs := &FileStorage{
		basePath: basePath,
		memory:   NewMemoryStorage(),
	}

	if err := fs.loadAll(); err != nil {
		return nil, err
	}

	return fs, nil
}

// loadAll loads all data from disk. Unreadable files are skipped.
func (f *FileStorage) loadAll() error {
	err := readJSONDir(filepath.Join(f.basePath, "mocks"), func() any { return &models.MockConfig{} }, func(v any) error {
		return f.memory.CreateMock(v.(*models.MockConfig))
	})
	if err != nil {
		return err
	}

	return readJSONDir(filepath.Join(f.basePath, "models"), func() any { return &models.ApiModel{} }, func(v any) error {
		return f.memory.SaveModel(v.(*models.ApiModel))
	})
}

func readJSONDir(dir string, newValue func() any, add func(any) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logging.L.Warnw("skipping unreadable file", "path", path, "error", err)
			continue
		}

		v := newValue()
		if err := json.Unmarshal(data, v); err != nil {
			logging.L.Warnw("skipping invalid file", "path", path, "error", err)
			continue
		}
		if err := add(v); err != nil {
			logging.L.Warnw("skipping conflicting record", "path", path, "error", err)
		}
	}

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileStorage) mockPath(id string) string {
	return filepath.Join(f.basePath, "mocks", url.PathEscape(id)+".json")
}

func (f *FileStorage) modelPath(name string) string {
	return filepath.Join(f.basePath, "models", url.PathEscape(name)+".json")
}

// CreateMock creates a new config
func (f *FileStorage) CreateMock(cfg *models.MockConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.CreateMock(cfg); err != nil {
		return err
	}
	return writeJSON(f.mockPath(cfg.ID), cfg)
}

// GetMock retrieves a config by ID
func (f *FileStorage) GetMock(id string) (*models.MockConfig, error) {
	return f.memory.GetMock(id)
}

// GetMockByEndpoint retrieves the config of an endpoint
func (f *FileStorage) GetMockByEndpoint(endpointID string) (*models.MockConfig, error) {
	return f.memory.GetMockByEndpoint(endpointID)
}

// GetAllMocks retrieves all configs
func (f *FileStorage) GetAllMocks() ([]*models.MockConfig, error) {
	return f.memory.GetAllMocks()
}

// GetEnabledMocks retrieves all enabled configs
func (f *FileStorage) GetEnabledMocks() ([]*models.MockConfig, error) {
	return f.memory.GetEnabledMocks()
}

// UpdateMock updates a config
func (f *FileStorage) UpdateMock(cfg *models.MockConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.UpdateMock(cfg); err != nil {
		return err
	}
	return writeJSON(f.mockPath(cfg.ID), cfg)
}

// DeleteMock deletes a config
func (f *FileStorage) DeleteMock(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.DeleteMock(id); err != nil {
		return err
	}
	return removeFile(f.mockPath(id))
}

// DeleteMocksByEndpoint deletes the configs of an endpoint
func (f *FileStorage) DeleteMocksByEndpoint(endpointID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := f.memory.GetMockByEndpoint(endpointID)
	if err != nil {
		return 0, nil
	}

	n, err := f.memory.DeleteMocksByEndpoint(endpointID)
	if err != nil {
		return 0, err
	}
	return n, removeFile(f.mockPath(cfg.ID))
}

// SaveModel creates or replaces a model
func (f *FileStorage) SaveModel(model *models.ApiModel) error {
	if strings.TrimSpace(model.Name) == "" {
		return fmt.Errorf("model name is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.SaveModel(model); err != nil {
		return err
	}
	return writeJSON(f.modelPath(model.Name), model)
}

// GetModel retrieves a model by name
func (f *FileStorage) GetModel(name string) (*models.ApiModel, error) {
	return f.memory.GetModel(name)
}

// ListModels retrieves all models
func (f *FileStorage) ListModels() ([]*models.ApiModel, error) {
	return f.memory.ListModels()
}

// DeleteModel deletes a model
func (f *FileStorage) DeleteModel(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.DeleteModel(name); err != nil {
		return err
	}
	return removeFile(f.modelPath(name))
}

// Close closes the storage
func (f *FileStorage) Close() error {
	return nil
}
