package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prasenjit/go-mocksim/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mock_configs (
	id TEXT PRIMARY KEY,
	endpoint_id TEXT NOT NULL UNIQUE,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	doc TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_mock_configs_enabled ON mock_configs(enabled);
CREATE INDEX IF NOT EXISTS idx_mock_configs_method_path ON mock_configs(method, path);

CREATE TABLE IF NOT EXISTS api_models (
	name TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);`

// SQLiteStorage implements Storage on a SQLite database. Each row keeps the
// JSON document next to the columns used for lookups.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// one writer; also keeps a ":memory:" database on a single connection
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL", "PRAGMA busy_timeout=5000"}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("error running %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateMock inserts a new config
func (s *SQLiteStorage) CreateMock(cfg *models.MockConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO mock_configs (id, endpoint_id, method, path, enabled, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.EndpointID, cfg.Method, cfg.Path, cfg.Enabled, string(doc), cfg.CreatedAt, cfg.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("mock %s for endpoint %s: %w", cfg.ID, cfg.EndpointID, ErrAlreadyExists)
	}
	return err
}

func (s *SQLiteStorage) queryMock(what, query string, args ...any) (*models.MockConfig, error) {
	var doc string
	err := s.db.QueryRow(query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var cfg models.MockConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("%s: corrupt document: %w", what, err)
	}
	return &cfg, nil
}

func (s *SQLiteStorage) queryMocks(query string, args ...any) ([]*models.MockConfig, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.MockConfig, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var cfg models.MockConfig
		if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
			return nil, err
		}
		out = append(out, &cfg)
	}
	return out, rows.Err()
}

// GetMock retrieves a config by ID
func (s *SQLiteStorage) GetMock(id string) (*models.MockConfig, error) {
	return s.queryMock("mock "+id, `SELECT doc FROM mock_configs WHERE id = ?`, id)
}

// GetMockByEndpoint retrieves the config of an endpoint
func (s *SQLiteStorage) GetMockByEndpoint(endpointID string) (*models.MockConfig, error) {
	return s.queryMock("mock for endpoint "+endpointID, `SELECT doc FROM mock_configs WHERE endpoint_id = ?`, endpointID)
}

// GetAllMocks retrieves all configs ordered by path then method
func (s *SQLiteStorage) GetAllMocks() ([]*models.MockConfig, error) {
	return s.queryMocks(`SELECT doc FROM mock_configs ORDER BY path, method, id`)
}

// GetEnabledMocks retrieves all enabled configs
func (s *SQLiteStorage) GetEnabledMocks() ([]*models.MockConfig, error) {
	return s.queryMocks(`SELECT doc FROM mock_configs WHERE enabled = 1 ORDER BY path, method, id`)
}

// UpdateMock replaces a stored config
func (s *SQLiteStorage) UpdateMock(cfg *models.MockConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`UPDATE mock_configs SET endpoint_id = ?, method = ?, path = ?, enabled = ?, doc = ?, updated_at = ? WHERE id = ?`,
		cfg.EndpointID, cfg.Method, cfg.Path, cfg.Enabled, string(doc), cfg.UpdatedAt, cfg.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("endpoint %s: %w", cfg.EndpointID, ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	return expectRow(res, "mock "+cfg.ID)
}

// DeleteMock deletes a config
func (s *SQLiteStorage) DeleteMock(id string) error {
	res, err := s.db.Exec(`DELETE FROM mock_configs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "mock "+id)
}

// DeleteMocksByEndpoint deletes the configs of an endpoint
func (s *SQLiteStorage) DeleteMocksByEndpoint(endpointID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM mock_configs WHERE endpoint_id = ?`, endpointID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// SaveModel creates or replaces a model
func (s *SQLiteStorage) SaveModel(model *models.ApiModel) error {
	if strings.TrimSpace(model.Name) == "" {
		return fmt.Errorf("model name is required")
	}

	doc, err := json.Marshal(model)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO api_models (name, doc) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET doc = excluded.doc`,
		model.Name, string(doc),
	)
	return err
}

// GetModel retrieves a model by name
func (s *SQLiteStorage) GetModel(name string) (*models.ApiModel, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM api_models WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var model models.ApiModel
	if err := json.Unmarshal([]byte(doc), &model); err != nil {
		return nil, err
	}
	return &model, nil
}

// ListModels retrieves all models sorted by name
func (s *SQLiteStorage) ListModels() ([]*models.ApiModel, error) {
	rows, err := s.db.Query(`SELECT doc FROM api_models ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.ApiModel, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var model models.ApiModel
		if err := json.Unmarshal([]byte(doc), &model); err != nil {
			return nil, err
		}
		out = append(out, &model)
	}
	return out, rows.Err()
}

// DeleteModel deletes a model
func (s *SQLiteStorage) DeleteModel(name string) error {
	res, err := s.db.Exec(`DELETE FROM api_models WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return expectRow(res, "model "+name)
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
