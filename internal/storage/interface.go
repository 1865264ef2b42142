package storage

import (
	"errors"

	"github.com/prasenjit/go-mocksim/internal/models"
)

// Sentinel errors, wrapped with the offending id
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Storage defines the interface for data persistence
type Storage interface {
	// MockConfig operations. An endpoint has at most one config.
	CreateMock(cfg *models.MockConfig) error
	GetMock(id string) (*models.MockConfig, error)
	GetMockByEndpoint(endpointID string) (*models.MockConfig, error)
	GetAllMocks() ([]*models.MockConfig, error)
	GetEnabledMocks() ([]*models.MockConfig, error)
	UpdateMock(cfg *models.MockConfig) error
	DeleteMock(id string) error
	// DeleteMocksByEndpoint removes every config of the endpoint and returns how many
	DeleteMocksByEndpoint(endpointID string) (int, error)

	// ApiModel operations, keyed by model name
	SaveModel(model *models.ApiModel) error
	GetModel(name string) (*models.ApiModel, error)
	ListModels() ([]*models.ApiModel, error)
	DeleteModel(name string) error

	// Utility
	Close() error
}
