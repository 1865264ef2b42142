package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prasenjit/go-mocksim/internal/api"
	"github.com/prasenjit/go-mocksim/internal/config"
	"github.com/prasenjit/go-mocksim/internal/faker"
	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/metrics"
	"github.com/prasenjit/go-mocksim/internal/network"
	"github.com/prasenjit/go-mocksim/internal/proxy"
	"github.com/prasenjit/go-mocksim/internal/resolver"
	"github.com/prasenjit/go-mocksim/internal/scenario"
	"github.com/prasenjit/go-mocksim/internal/stats"
	"github.com/prasenjit/go-mocksim/internal/storage"
	"github.com/prasenjit/go-mocksim/internal/template"
	"github.com/prasenjit/go-mocksim/internal/tlsutil"
	"github.com/prasenjit/go-mocksim/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server",
	Long: `Starts the mock server.

The server will:
  - Load mock configs and API models from the configured storage
  - Expose the Admin API at /_api/
  - Expose Prometheus metrics (default /metrics)
  - Serve every other request from the enabled mocks
  - With --tls, accept HTTPS and plain HTTP on the same port, using a
    self-signed certificate unless server.tls.certFile/keyFile are set

Configuration is loaded from config.yaml in the current directory,
or specify a custom config file with the --config flag. Every key can be
overridden with a MOCKSIM_ environment variable, e.g. MOCKSIM_SERVER_PORT.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Override server port")
	serveCmd.Flags().String("storage", "", "Override storage type (memory, file, sqlite)")
	serveCmd.Flags().Bool("tls", false, "Enable TLS (overrides config)")

	// Bind flags to viper
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("storage.type", serveCmd.Flags().Lookup("storage"))
	viper.BindPFlag("server.tls.enabled", serveCmd.Flags().Lookup("tls"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	defer logging.Sync()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	generator := generatorOptions(cfg.Generator)
	res := resolver.New(
		network.NewSimulator(nil),
		scenario.NewEngine(nil, nil),
		template.NewEngine(),
		store,
		generator,
	)

	statsCollector := stats.NewCollector()
	tracingService := tracing.NewService(cfg.Tracing.MaxTraces)

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		gatherer = reg
	}

	proxyEngine := proxy.NewEngine(store, res, statsCollector, tracingService, m)

	router := api.NewRouter(api.Dependencies{
		Store:       store,
		Resolver:    res,
		Stats:       statsCollector,
		Tracing:     tracingService,
		Proxy:       proxyEngine,
		Metrics:     m,
		Generator:   generator,
		Gatherer:    gatherer,
		MetricsPath: cfg.Metrics.Path,
	})

	listener, err := listen(cfg)
	if err != nil {
		return err
	}

	addr := listener.Addr().String()
	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logging.L.Infow("starting mock server",
			"addr", addr,
			"storage", cfg.Storage.Type,
			"metrics", cfg.Metrics.Enabled,
			"tls", cfg.Server.TLS.Enabled,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logging.L.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.L.Errorw("server shutdown error", "error", err)
	}

	logging.L.Info("server stopped")
	return nil
}

// listen opens the server socket. With TLS enabled it sniffs each connection
// so HTTPS and, when allowed, plain HTTP share the port.
func listen(cfg *config.Config) (net.Listener, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	inner, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if !cfg.Server.TLS.Enabled {
		return inner, nil
	}

	src := tlsutil.CertSource{
		CertFile:     cfg.Server.TLS.CertFile,
		KeyFile:      cfg.Server.TLS.KeyFile,
		Dir:          cfg.CertDir(),
		AutoGenerate: cfg.Server.TLS.AutoGenerate,
		Hosts:        []string{cfg.Server.Host},
	}
	cert, err := src.Load()
	if err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to get TLS certificate: %w", err)
	}

	certPath, keyPath := src.Paths()
	logging.L.Infow("using TLS certificate",
		"cert", certPath,
		"key", keyPath,
		"allowPlain", cfg.Server.TLS.AllowPlain,
	)
	return tlsutil.NewSniffListener(inner, tlsutil.ServerConfig(cert), cfg.Server.TLS.AllowPlain), nil
}

// openStorage builds the configured storage backend. A sqlite path that
// names a directory gets a mocksim.db inside it.
func openStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case config.StorageFile:
		path, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, err
		}
		logging.L.Infow("using file storage", "path", path)
		store, err := storage.NewFileStorage(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return store, nil
	case config.StorageSQLite:
		path := cfg.Path
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "mocksim.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		logging.L.Infow("using sqlite storage", "path", path)
		store, err := storage.NewSQLiteStorage(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		return store, nil
	default:
		logging.L.Info("using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}

func generatorOptions(cfg config.GeneratorConfig) faker.Options {
	include := cfg.IncludeOptional
	return faker.Options{
		Locale:          cfg.Locale,
		MaxDepth:        cfg.MaxDepth,
		ArrayLength:     cfg.ArrayLength,
		IncludeOptional: &include,
	}
}
