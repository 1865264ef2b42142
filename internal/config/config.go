package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Tracing   TracingConfig   `yaml:"tracing" mapstructure:"tracing"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	Host            string        `yaml:"host" mapstructure:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" mapstructure:"writeTimeout"` // Must exceed the longest simulated delay
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	TLS             TLSConfig     `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig holds HTTPS configuration. HTTPS and plain HTTP share the port.
type TLSConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	CertFile     string `yaml:"certFile" mapstructure:"certFile"`
	KeyFile      string `yaml:"keyFile" mapstructure:"keyFile"`
	AutoGenerate bool   `yaml:"autoGenerate" mapstructure:"autoGenerate"`
	StorePath    string `yaml:"storePath" mapstructure:"storePath"` // Defaults to <storage.path>/certs
	AllowPlain   bool   `yaml:"allowPlain" mapstructure:"allowPlain"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type string `yaml:"type" mapstructure:"type"` // "memory", "file" or "sqlite"
	Path string `yaml:"path" mapstructure:"path"` // Directory for file storage, database file for sqlite
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	MaxTraces int `yaml:"maxTraces" mapstructure:"maxTraces"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// GeneratorConfig holds the default fake data options
type GeneratorConfig struct {
	Locale          string `yaml:"locale" mapstructure:"locale"`
	MaxDepth        int    `yaml:"maxDepth" mapstructure:"maxDepth"`
	ArrayLength     int    `yaml:"arrayLength" mapstructure:"arrayLength"`
	IncludeOptional bool   `yaml:"includeOptional" mapstructure:"includeOptional"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 5 * time.Second,
			TLS: TLSConfig{
				AutoGenerate: true,
				AllowPlain:   true,
			},
		},
		Storage: StorageConfig{
			Type: StorageMemory,
			Path: "./data",
		},
		Tracing: TracingConfig{
			MaxTraces: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Generator: GeneratorConfig{
			Locale:          "en",
			MaxDepth:        3,
			ArrayLength:     3,
			IncludeOptional: true,
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// SetDefaults registers every default with v so that environment variables
// can override keys that no config file sets
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.tls.enabled", d.Server.TLS.Enabled)
	v.SetDefault("server.tls.certFile", d.Server.TLS.CertFile)
	v.SetDefault("server.tls.keyFile", d.Server.TLS.KeyFile)
	v.SetDefault("server.tls.autoGenerate", d.Server.TLS.AutoGenerate)
	v.SetDefault("server.tls.storePath", d.Server.TLS.StorePath)
	v.SetDefault("server.tls.allowPlain", d.Server.TLS.AllowPlain)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("tracing.maxTraces", d.Tracing.MaxTraces)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("generator.locale", d.Generator.Locale)
	v.SetDefault("generator.maxDepth", d.Generator.MaxDepth)
	v.SetDefault("generator.arrayLength", d.Generator.ArrayLength)
	v.SetDefault("generator.includeOptional", d.Generator.IncludeOptional)
}

// BindEnv lets PREFIX_SECTION_KEY environment variables override settings
func BindEnv(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// CertDir returns where generated certificates are kept
func (c *Config) CertDir() string {
	if c.Server.TLS.StorePath != "" {
		return c.Server.TLS.StorePath
	}
	return filepath.Join(c.Storage.Path, "certs")
}

// FromViper decodes the merged file, environment and flag settings held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if tc := c.Server.TLS; tc.Enabled && (tc.CertFile == "") != (tc.KeyFile == "") {
		return fmt.Errorf("server.tls.certFile and server.tls.keyFile must be set together")
	}

	switch strings.ToLower(c.Storage.Type) {
	case StorageMemory:
	case StorageFile, StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}

	switch c.Logging.Format {
	case "json", "console", "text":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}

	if c.Generator.MaxDepth < 0 || c.Generator.ArrayLength < 0 {
		return fmt.Errorf("generator.maxDepth and generator.arrayLength must not be negative")
	}
	return nil
}
