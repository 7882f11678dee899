package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/nahankar/shatika/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Storage drivers.
const (
	StorageLocal  = "local"
	StorageGCS    = "gcs"
	StorageMemory = "memory"
)

// Config holds all configuration for the shatika server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"shatika"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"shatika_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"shatika"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"DB_SLOW_QUERY_MS" envDefault:"200"`

	// Redis product cache
	CacheEnabled  bool          `env:"CACHE_ENABLED" envDefault:"false"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"24h"`

	// Bootstrap admin
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Storage
	StorageDriver        string `env:"STORAGE_DRIVER" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"./uploads"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"http://localhost:8080/uploads"`
	GCSBucket            string `env:"GCS_BUCKET"`
	GCSCredentialsFile   string `env:"GCS_CREDENTIALS_FILE"`
	GCSPublicBaseURL     string `env:"GCS_PUBLIC_BASE_URL"`
	UploadMaxBytes       int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`

	// Thumbnail renderer
	RenderEnabled      bool          `env:"RENDER_ENABLED" envDefault:"true"`
	RenderBrowserBin   string        `env:"RENDER_BROWSER_BIN"`
	RenderControlURL   string        `env:"RENDER_CONTROL_URL"`
	RenderAssetTimeout time.Duration `env:"RENDER_ASSET_TIMEOUT" envDefault:"3s"`
	RenderTimeout      time.Duration `env:"RENDER_TIMEOUT" envDefault:"20s"`

	// Product search
	SearchEnabled    bool   `env:"SEARCH_ENABLED" envDefault:"false"`
	ElasticsearchURL string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	SearchIndex      string `env:"SEARCH_INDEX" envDefault:"shatika_products"`

	// Per-IP limit on /auth endpoints; zero disables it.
	AuthRateLimitRPS   int `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Observability
	OTELEnabled       bool     `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint      string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure      bool     `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate    float64  `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode, which
// exposes internal error details in responses.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Outside development, require an explicitly set, strong JWT secret.
	if !c.IsDevelopment() {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	if c.JWTAccessExpiry <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRY must be positive")
	}

	switch c.StorageDriver {
	case StorageLocal:
		if c.StorageLocalDir == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR is required for the local storage driver")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the gcs storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	if c.SearchEnabled && c.ElasticsearchURL == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is required when SEARCH_ENABLED is set")
	}
	if c.AuthRateLimitRPS < 0 || c.AuthRateLimitBurst < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must not be negative")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}
