package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the video service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"viewcast-server"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"VIEWCAST_PORT" envDefault:"5000"`
	LogLevel        string        `env:"VIEWCAST_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseDSN string `env:"DB_POSTGRESQL_DSN,notEmpty"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Storage Backend Selection. The backend is chosen once at process
	// start; "s3" is used when bucket credentials are present, otherwise
	// uploads land on the local disk.
	StorageBackend string `env:"VIDEO_STORAGE_BACKEND" envDefault:"local"`

	// Local Storage Configuration
	LocalStoragePath string `env:"VIDEO_LOCAL_STORAGE_PATH" envDefault:"uploads"`

	// S3 Storage Configuration
	S3Endpoint     string `env:"VIDEO_S3_ENDPOINT"`
	S3Region       string `env:"VIDEO_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string `env:"VIDEO_S3_BUCKET"`
	S3AccessKeyID  string `env:"VIDEO_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"VIDEO_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"VIDEO_S3_USE_PATH_STYLE" envDefault:"true"`

	// Upload limits
	MaxUploadBytes int64 `env:"VIDEO_MAX_UPLOAD_BYTES" envDefault:"524288000"` // 500 MiB

	// Thumbnail extraction
	FFmpegPath string `env:"FFMPEG_PATH"` // optional override, exec.LookPath otherwise

	// Processing pipeline
	WorkerCount        int           `env:"PIPELINE_WORKERS" envDefault:"4"`
	QueueDepth         int           `env:"PIPELINE_QUEUE_DEPTH" envDefault:"100"`
	StageDelay         time.Duration `env:"PIPELINE_STAGE_DELAY" envDefault:"2s"`
	ClassifierFlagRate float64       `env:"CLASSIFIER_FLAG_RATE" envDefault:"0.2"`

	// Authentication
	JWTSecret string        `env:"JWT_SECRET_KEY,notEmpty"`
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"72h"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 500 * 1024 * 1024
	}
	if cfg.ClassifierFlagRate < 0 || cfg.ClassifierFlagRate > 1 {
		return nil, fmt.Errorf("CLASSIFIER_FLAG_RATE must be within [0,1], got %v", cfg.ClassifierFlagRate)
	}
	if cfg.IsS3Storage() {
		if cfg.S3Bucket == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretKey == "" {
			return nil, fmt.Errorf("VIDEO_S3_BUCKET and credentials are required when VIDEO_STORAGE_BACKEND is s3")
		}
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if the local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "local"
}

// IsS3Storage returns true if the S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "s3"
}
