package main

import (
	"crypto/tls"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prasenjit/go-mocksim/internal/config"
	"github.com/prasenjit/go-mocksim/internal/models"
	"github.com/prasenjit/go-mocksim/internal/storage"
)

func TestWriteInitialLayout(t *testing.T) {
	dir := t.TempDir()

	configFile, err := writeInitialLayout(dir, false)
	if err != nil {
		t.Fatalf("writeInitialLayout failed: %v", err)
	}

	for _, sub := range []string{"data/mocks", "data/models"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s", sub)
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Storage.Type != config.StorageFile {
		t.Errorf("Expected file storage, got %q", cfg.Storage.Type)
	}
	if cfg.Server.WriteTimeout != config.Default().Server.WriteTimeout {
		t.Errorf("Expected durations to round-trip, got %v", cfg.Server.WriteTimeout)
	}

	if _, err := writeInitialLayout(dir, false); err == nil {
		t.Error("Expected existing config to be kept without force")
	}
	if _, err := writeInitialLayout(dir, true); err != nil {
		t.Errorf("Expected force to overwrite, got %v", err)
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StorageConfig
		want any
	}{
		{"memory", config.StorageConfig{Type: config.StorageMemory}, &storage.MemoryStorage{}},
		{"file", config.StorageConfig{Type: config.StorageFile, Path: filepath.Join(dir, "files")}, &storage.FileStorage{}},
		{"sqlite file", config.StorageConfig{Type: config.StorageSQLite, Path: filepath.Join(dir, "db", "mocks.db")}, &storage.SQLiteStorage{}},
		{"sqlite directory", config.StorageConfig{Type: config.StorageSQLite, Path: dir}, &storage.SQLiteStorage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := openStorage(tt.cfg)
			if err != nil {
				t.Fatalf("openStorage failed: %v", err)
			}
			defer store.Close()

			switch tt.want.(type) {
			case *storage.MemoryStorage:
				if _, ok := store.(*storage.MemoryStorage); !ok {
					t.Errorf("Expected memory storage, got %T", store)
				}
			case *storage.FileStorage:
				if _, ok := store.(*storage.FileStorage); !ok {
					t.Errorf("Expected file storage, got %T", store)
				}
			case *storage.SQLiteStorage:
				if _, ok := store.(*storage.SQLiteStorage); !ok {
					t.Errorf("Expected sqlite storage, got %T", store)
				}
			}

			if err := store.SaveModel(&models.ApiModel{Name: "Probe"}); err != nil {
				t.Errorf("Expected a writable store, got %v", err)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "mocksim.db")); err != nil {
		t.Error("Expected sqlite directory path to get mocksim.db")
	}
}

func TestGeneratorOptions(t *testing.T) {
	opts := generatorOptions(config.GeneratorConfig{
		Locale:          "en",
		MaxDepth:        2,
		ArrayLength:     4,
		IncludeOptional: false,
	})

	if opts.Locale != "en" || opts.MaxDepth != 2 || opts.ArrayLength != 4 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.IncludeOptional == nil || *opts.IncludeOptional {
		t.Error("Expected includeOptional=false to be carried explicitly")
	}
	if opts.Seed != nil {
		t.Error("Expected no fixed seed by default")
	}
}

func serveOK(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ln, err := listen(cfg)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})}
	go server.Serve(ln)
	t.Cleanup(func() { server.Close() })
	return ln.Addr().String()
}

func TestListen(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = 0

		addr := serveOK(t, cfg)
		resp, err := (&http.Client{Timeout: 5 * time.Second}).Get("http://" + addr + "/")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
	})

	t.Run("tls generates a certificate", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = 0
		cfg.Server.TLS.Enabled = true
		cfg.Storage.Path = t.TempDir()

		addr := serveOK(t, cfg)

		client := &http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		}
		for _, scheme := range []string{"https", "http"} {
			resp, err := client.Get(scheme + "://" + addr + "/")
			if err != nil {
				t.Fatalf("%s GET failed: %v", scheme, err)
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(body) != "ok" {
				t.Errorf("Expected ok over %s, got %q", scheme, body)
			}
		}

		if _, err := os.Stat(filepath.Join(cfg.CertDir(), "mocksim.crt")); err != nil {
			t.Errorf("Expected generated certificate under %s: %v", cfg.CertDir(), err)
		}
	})

	t.Run("tls without certificate", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = 0
		cfg.Server.TLS.Enabled = true
		cfg.Server.TLS.AutoGenerate = false
		cfg.Storage.Path = t.TempDir()

		if _, err := listen(cfg); err == nil {
			t.Error("Expected listen to fail without a certificate")
		}
	})
}
