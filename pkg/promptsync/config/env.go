package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors ServerConfig as flat environment variables.
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseType      string        `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL       string        `env:"DATABASE_URL" env-default:""`
	SubscribePollSecs time.Duration `env:"SUBSCRIBE_POLL_INTERVAL" env-default:"2s"`

	DefaultStorageBackend string `env:"DEFAULT_STORAGE_BACKEND" env-default:"memory"`
	EnableEventLogging    bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`

	FSBaseDir   string `env:"FS_BASE_DIR" env-default:""`
	FSURLPrefix string `env:"FS_URL_PREFIX" env-default:""`

	S3Bucket          string `env:"S3_BUCKET" env-default:""`
	S3Region          string `env:"S3_REGION" env-default:""`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3UseSSL          bool   `env:"S3_USE_SSL" env-default:"true"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3PresignDuration int    `env:"S3_PRESIGN_DURATION" env-default:"3600"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL" env-default:""`
	S3CreateBucket    bool   `env:"S3_CREATE_BUCKET_IF_NOT_EXIST" env-default:"false"`
}

// LoadServerConfigFromEnv constructs a ServerConfig by reading process
// environment variables.
func LoadServerConfigFromEnv() (*ServerConfig, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := defaults()
	cfg.Port = env.Port
	cfg.Environment = env.Environment
	cfg.DatabaseType = env.DatabaseType
	cfg.DatabaseURL = env.DatabaseURL
	cfg.SubscribePollInterval = env.SubscribePollSecs
	cfg.DefaultStorageBackend = env.DefaultStorageBackend
	cfg.EnableEventLogging = env.EnableEventLogging

	if env.FSBaseDir != "" {
		cfg.StorageBackends = append(cfg.StorageBackends, StorageBackendConfig{
			Name: "fs",
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir":   env.FSBaseDir,
				"url_prefix": env.FSURLPrefix,
			},
		})
	}

	if env.S3Bucket != "" {
		cfg.StorageBackends = append(cfg.StorageBackends, StorageBackendConfig{
			Name: "s3",
			Type: "s3",
			Config: map[string]interface{}{
				"region":                     env.S3Region,
				"bucket":                     env.S3Bucket,
				"access_key_id":              env.S3AccessKeyID,
				"secret_access_key":          env.S3SecretAccessKey,
				"endpoint":                   env.S3Endpoint,
				"use_ssl":                    env.S3UseSSL,
				"use_path_style":             env.S3UsePathStyle,
				"presign_duration":           env.S3PresignDuration,
				"public_base_url":            env.S3PublicBaseURL,
				"create_bucket_if_not_exist": env.S3CreateBucket,
			},
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
