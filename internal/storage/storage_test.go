package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prasenjit/go-mocksim/internal/models"
)

// backends runs fn against every Storage implementation
func backends(t *testing.T, fn func(t *testing.T, s Storage)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStorage())
	})

	t.Run("file", func(t *testing.T) {
		s, err := NewFileStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStorage failed: %v", err)
		}
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "mocksim.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStorage failed: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func testMock(id, endpointID, path string, enabled bool) *models.MockConfig {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.MockConfig{
		ID:           id,
		EndpointID:   endpointID,
		Method:       "GET",
		Path:         path,
		Enabled:      enabled,
		StatusCode:   200,
		ResponseBody: `{"ok":true}`,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMockCRUD(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		cfg := testMock("m1", "ep1", "/users", true)
		cfg.SequenceEnabled = true
		cfg.SequenceResponses = []models.SequenceResponse{{CallNumber: 2, StatusCode: 201}}

		if err := s.CreateMock(cfg); err != nil {
			t.Fatalf("CreateMock failed: %v", err)
		}
		if err := s.CreateMock(cfg); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists for duplicate id, got %v", err)
		}
		if err := s.CreateMock(testMock("m2", "ep1", "/other", true)); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists for duplicate endpoint, got %v", err)
		}

		got, err := s.GetMock("m1")
		if err != nil {
			t.Fatalf("GetMock failed: %v", err)
		}
		if got.Path != "/users" || len(got.SequenceResponses) != 1 || got.SequenceResponses[0].StatusCode != 201 {
			t.Errorf("unexpected config %+v", got)
		}

		byEndpoint, err := s.GetMockByEndpoint("ep1")
		if err != nil || byEndpoint.ID != "m1" {
			t.Errorf("GetMockByEndpoint: got %v, %v", byEndpoint, err)
		}

		got.Enabled = false
		got.StatusCode = 204
		if err := s.UpdateMock(got); err != nil {
			t.Fatalf("UpdateMock failed: %v", err)
		}
		updated, _ := s.GetMock("m1")
		if updated.StatusCode != 204 || updated.Enabled {
			t.Errorf("update not applied: %+v", updated)
		}

		if err := s.UpdateMock(testMock("missing", "ep9", "/x", true)); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on update, got %v", err)
		}

		if err := s.DeleteMock("m1"); err != nil {
			t.Fatalf("DeleteMock failed: %v", err)
		}
		if _, err := s.GetMock("m1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteMock("m1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := s.GetMockByEndpoint("ep1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("endpoint index should be cleared, got %v", err)
		}
	})
}

func TestListMocks(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		_ = s.CreateMock(testMock("m1", "ep1", "/b", true))
		_ = s.CreateMock(testMock("m2", "ep2", "/a", false))
		_ = s.CreateMock(testMock("m3", "ep3", "/c", true))

		all, err := s.GetAllMocks()
		if err != nil {
			t.Fatalf("GetAllMocks failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 mocks, got %d", len(all))
		}
		if all[0].Path != "/a" || all[1].Path != "/b" || all[2].Path != "/c" {
			t.Errorf("expected mocks ordered by path, got %s %s %s", all[0].Path, all[1].Path, all[2].Path)
		}

		enabled, err := s.GetEnabledMocks()
		if err != nil {
			t.Fatalf("GetEnabledMocks failed: %v", err)
		}
		if len(enabled) != 2 {
			t.Errorf("expected 2 enabled mocks, got %d", len(enabled))
		}
	})
}

func TestDeleteMocksByEndpoint(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		_ = s.CreateMock(testMock("m1", "ep1", "/a", true))
		_ = s.CreateMock(testMock("m2", "ep2", "/b", true))

		n, err := s.DeleteMocksByEndpoint("ep1")
		if err != nil || n != 1 {
			t.Fatalf("expected 1 deletion, got %d (%v)", n, err)
		}
		if n, _ := s.DeleteMocksByEndpoint("ep1"); n != 0 {
			t.Errorf("expected 0 deletions the second time, got %d", n)
		}
		if _, err := s.GetMock("m2"); err != nil {
			t.Errorf("other endpoint should be untouched: %v", err)
		}
		if err := s.CreateMock(testMock("m3", "ep1", "/a", true)); err != nil {
			t.Errorf("endpoint should be free again: %v", err)
		}
	})
}

func TestModels(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		user := &models.ApiModel{
			Name: "User",
			Fields: []models.ApiField{
				{Name: "id", Type: "UUID", IsRequired: true},
				{Name: "address", Type: "Address", IsComplex: true},
			},
		}

		if err := s.SaveModel(user); err != nil {
			t.Fatalf("SaveModel failed: %v", err)
		}
		if err := s.SaveModel(&models.ApiModel{Name: "Address"}); err != nil {
			t.Fatalf("SaveModel failed: %v", err)
		}
		if err := s.SaveModel(&models.ApiModel{}); err == nil {
			t.Error("expected an error for a model without a name")
		}

		user.Description = "replaced"
		if err := s.SaveModel(user); err != nil {
			t.Fatalf("SaveModel upsert failed: %v", err)
		}

		got, err := s.GetModel("User")
		if err != nil {
			t.Fatalf("GetModel failed: %v", err)
		}
		if got.Description != "replaced" || len(got.Fields) != 2 || !got.Fields[1].IsComplex {
			t.Errorf("unexpected model %+v", got)
		}

		list, err := s.ListModels()
		if err != nil || len(list) != 2 || list[0].Name != "Address" {
			t.Errorf("unexpected model list %v (%v)", list, err)
		}

		if err := s.DeleteModel("User"); err != nil {
			t.Fatalf("DeleteModel failed: %v", err)
		}
		if _, err := s.GetModel("User"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.DeleteModel("User"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s := NewMemoryStorage()
	_ = s.CreateMock(testMock("m1", "ep1", "/a", true))

	got, _ := s.GetMock("m1")
	got.StatusCode = 500

	again, _ := s.GetMock("m1")
	if again.StatusCode != 200 {
		t.Error("mutating a returned config changed the store")
	}
}

func TestMemoryStorage_Concurrent(t *testing.T) {
	s := NewMemoryStorage()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i%26)) + string(rune('a'+i/26))
			_ = s.CreateMock(testMock(id, "ep-"+id, "/"+id, true))
			_, _ = s.GetAllMocks()
		}(i)
	}
	wg.Wait()

	all, _ := s.GetAllMocks()
	if len(all) != 50 {
		t.Errorf("expected 50 mocks, got %d", len(all))
	}
}

func TestFileStorage_Reload(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}
	_ = s.CreateMock(testMock("m1", "ep1", "/a", true))
	_ = s.CreateMock(testMock("m2", "ep2", "/b", true))
	_ = s.DeleteMock("m2")
	_ = s.SaveModel(&models.ApiModel{Name: "Order"})

	reopened, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	all, _ := reopened.GetAllMocks()
	if len(all) != 1 || all[0].ID != "m1" {
		t.Errorf("expected only m1 after reload, got %v", all)
	}
	if _, err := reopened.GetModel("Order"); err != nil {
		t.Errorf("model should survive reload: %v", err)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mocksim.db")

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	_ = s.CreateMock(testMock("m1", "ep1", "/a", true))
	s.Close()

	reopened, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetMockByEndpoint("ep1")
	if err != nil || got.ID != "m1" {
		t.Errorf("expected m1 after reopen, got %v (%v)", got, err)
	}
}
