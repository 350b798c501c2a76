package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DBTypePostgres is the only metadata backend currently wired.
	DBTypePostgres = "postgres"

	// BlobBackendFilesystem stores blobs as files under Blob.DataPath.
	BlobBackendFilesystem = "filesystem"
	// BlobBackendMinIO stores blobs as objects in MinIO.Bucket.
	BlobBackendMinIO = "minio"
)

// Config aggregates runtime configuration for the bitbeem API.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Blob     BlobConfig
	MinIO    MinIOConfig
	Log      LogConfig
	Public   PublicConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the metadata backend and how to reach it.
type DatabaseConfig struct {
	Type     string
	URL      string
	Postgres PostgresConfig
}

// DSN returns the explicit URL when configured, otherwise one built from the Postgres parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return d.Postgres.DSN()
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// BlobConfig selects where uploaded bytes live.
type BlobConfig struct {
	Backend  string
	DataPath string
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// LogConfig controls verbosity, encoding and the optional log file.
type LogConfig struct {
	Level    string
	Format   string
	Location string
}

// PublicConfig describes how the service is reached from outside; used to build download URLs.
type PublicConfig struct {
	UseTLS   bool
	BaseHost string
}

// BaseURL returns scheme://host:port without a trailing slash.
func (p PublicConfig) BaseURL() string {
	scheme := "http"
	if p.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, strings.TrimRight(p.BaseHost, "/"))
}

// AuthConfig groups identity and admin-token settings.
type AuthConfig struct {
	AllowRegister    bool
	BcryptCost       int
	AdminTokenSecret string
	AdminTokenTTL    time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:           getString("BITBEEM_LISTENER_ADDR", "0.0.0.0"),
			Port:           getInt("BITBEEM_PORT", 3000),
			ReadTimeout:    getDuration("BITBEEM_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getDuration("BITBEEM_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getDuration("BITBEEM_IDLE_TIMEOUT", 120*time.Second),
			MaxUploadBytes: getInt64("BITBEEM_MAX_UPLOAD_BYTES", 100*1024*1024),
		},
		Database: DatabaseConfig{
			Type: strings.ToLower(getString("BITBEEM_DB_TYPE", DBTypePostgres)),
			URL:  getString("BITBEEM_DATABASE_URL", ""),
			Postgres: PostgresConfig{
				Host:     getString("POSTGRES_HOST", "localhost"),
				Port:     getInt("POSTGRES_PORT", 5432),
				User:     getString("POSTGRES_USER", "bitbeem"),
				Password: getString("POSTGRES_PASSWORD", "change-me"),
				Database: getString("POSTGRES_DB", "bitbeem"),
				SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			},
		},
		Blob: BlobConfig{
			Backend:  strings.ToLower(getString("BITBEEM_BLOB_BACKEND", BlobBackendFilesystem)),
			DataPath: getString("BITBEEM_DATA_PATH", "./media_store"),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "bitbeem"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "bitbeem"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Log: LogConfig{
			Level:    strings.ToLower(getString("BITBEEM_LOG_LEVEL", "info")),
			Format:   strings.ToLower(getString("BITBEEM_LOG_FORMAT", "json")),
			Location: getString("BITBEEM_LOG_LOCATION", ""),
		},
		Public: PublicConfig{
			UseTLS:   getBool("BITBEEM_USE_TLS", false),
			BaseHost: getString("BITBEEM_BASE_HOST", "localhost:3000"),
		},
		Auth: loadAuthConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("BITBEEM_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.Type != DBTypePostgres {
		return fmt.Errorf("unsupported BITBEEM_DB_TYPE %q", c.Database.Type)
	}
	switch c.Blob.Backend {
	case BlobBackendFilesystem:
		if strings.TrimSpace(c.Blob.DataPath) == "" {
			return fmt.Errorf("BITBEEM_DATA_PATH must not be empty")
		}
	case BlobBackendMinIO:
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("MINIO_BUCKET must not be empty")
		}
	default:
		return fmt.Errorf("unsupported BITBEEM_BLOB_BACKEND %q", c.Blob.Backend)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("BITBEEM_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Public.BaseHost == "" {
		return fmt.Errorf("BITBEEM_BASE_HOST must not be empty")
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("BITBEEM_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AllowRegister:    getBool("BITBEEM_ALLOW_REGISTER", false),
		BcryptCost:       cost,
		AdminTokenSecret: getString("BITBEEM_ADMIN_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		AdminTokenTTL:    getDuration("BITBEEM_ADMIN_TOKEN_TTL", 24*time.Hour),
	}
}
