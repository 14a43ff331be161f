package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptkit/promptsync/pkg/promptsync"
	memorystore "github.com/promptkit/promptsync/pkg/promptsync/docstore/memory"
	pgstore "github.com/promptkit/promptsync/pkg/promptsync/docstore/postgres"
	fsstorage "github.com/promptkit/promptsync/pkg/promptsync/storage/fs"
	memorystorage "github.com/promptkit/promptsync/pkg/promptsync/storage/memory"
	s3storage "github.com/promptkit/promptsync/pkg/promptsync/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          "memory",
		SubscribePollInterval: 2 * time.Second,
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the promptsync service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Document store configuration
	DatabaseURL           string
	DatabaseType          string // "memory", "postgres"
	SubscribePollInterval time.Duration

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// Server options
	EnableEventLogging bool
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	// Ensure default storage backend exists in configured backends
	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration.
// Extra options (an event sink, say) are applied after the configured ones.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...promptsync.Option) (promptsync.Service, error) {
	var options []promptsync.Option

	store, err := c.buildDocumentStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build document store: %w", err)
	}
	options = append(options, promptsync.WithDocumentStore(store))

	for _, backendCfg := range c.StorageBackends {
		backend, err := buildBlobStore(backendCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend '%s': %w", backendCfg.Name, err)
		}
		options = append(options, promptsync.WithBlobStore(backendCfg.Name, backend))
	}
	options = append(options, promptsync.WithDefaultBackend(c.DefaultStorageBackend))
	options = append(options, extra...)

	return promptsync.New(options...)
}

func (c *ServerConfig) buildDocumentStore(ctx context.Context) (promptsync.DocumentStore, error) {
	switch c.DatabaseType {
	case "memory":
		return memorystore.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		return pgstore.NewWithPool(pool, pgstore.WithPollInterval(c.SubscribePollInterval)), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func buildBlobStore(cfg StorageBackendConfig) (promptsync.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   stringValue(cfg.Config, "base_dir"),
			URLPrefix: stringValue(cfg.Config, "url_prefix"),
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 stringValue(cfg.Config, "region"),
			Bucket:                 stringValue(cfg.Config, "bucket"),
			AccessKeyID:            stringValue(cfg.Config, "access_key_id"),
			SecretAccessKey:        stringValue(cfg.Config, "secret_access_key"),
			Endpoint:               stringValue(cfg.Config, "endpoint"),
			UseSSL:                 boolValue(cfg.Config, "use_ssl"),
			UsePathStyle:           boolValue(cfg.Config, "use_path_style"),
			PresignDuration:        intValue(cfg.Config, "presign_duration"),
			PublicBaseURL:          stringValue(cfg.Config, "public_base_url"),
			CreateBucketIfNotExist: boolValue(cfg.Config, "create_bucket_if_not_exist"),
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", cfg.Type)
	}
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolValue(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func intValue(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Convenience options

// WithPort sets the HTTP port.
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment name.
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithPostgres switches the document store to Postgres.
func WithPostgres(databaseURL string) Option {
	return func(c *ServerConfig) error {
		if databaseURL == "" {
			return errors.New("database URL cannot be empty")
		}
		c.DatabaseType = "postgres"
		c.DatabaseURL = databaseURL
		return nil
	}
}

// WithStorageBackend appends a storage backend configuration.
func WithStorageBackend(cfg StorageBackendConfig) Option {
	return func(c *ServerConfig) error {
		if cfg.Name == "" {
			return errors.New("storage backend name cannot be empty")
		}
		c.StorageBackends = append(c.StorageBackends, cfg)
		return nil
	}
}

// WithDefaultStorageBackend selects the default storage backend by name.
func WithDefaultStorageBackend(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return errors.New("default storage backend cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}
