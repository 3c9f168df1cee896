package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Shopify  ShopifyConfig
	Push     PushConfig
	Inbox    InboxConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret           string
	AccessTokenTTLHours int
	BcryptCost          int
}

// ShopifyConfig holds credentials for the commerce platform lookup.
type ShopifyConfig struct {
	Store           string
	AccessToken     string
	APIVersion      string
	CacheTTLSeconds int
}

// PushConfig configures the two push delivery channels.
type PushConfig struct {
	ExpoURL         string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	TTLSeconds      int
}

// InboxConfig tunes ticket threading and the realtime stream.
type InboxConfig struct {
	ReopenWindowHours    int
	SweepIntervalMinutes int
	KeepAliveSeconds     int
	SubscriberBufferSize int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "keel-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLHours: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_HOURS", 720),
			BcryptCost:          getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Shopify: ShopifyConfig{
			Store:           getEnv("SHOPIFY_STORE", "pioneer-feeders.myshopify.com"),
			AccessToken:     os.Getenv("SHOPIFY_ACCESS_TOKEN"),
			APIVersion:      getEnv("SHOPIFY_API_VERSION", "2024-01"),
			CacheTTLSeconds: getEnvAsInt("SHOPIFY_CACHE_TTL_SECONDS", 300),
		},
		Push: PushConfig{
			ExpoURL:         getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			VAPIDSubject:    getEnv("VAPID_EMAIL", "mailto:admin@pioneerfeeders.com"),
			TTLSeconds:      getEnvAsInt("WEB_PUSH_TTL_SECONDS", 60),
		},
		Inbox: InboxConfig{
			ReopenWindowHours:    getEnvAsInt("TICKET_REOPEN_WINDOW_HOURS", 168),
			SweepIntervalMinutes: getEnvAsInt("TICKET_SWEEP_INTERVAL_MINUTES", 60),
			KeepAliveSeconds:     getEnvAsInt("SSE_KEEPALIVE_SECONDS", 30),
			SubscriberBufferSize: getEnvAsInt("SSE_SUBSCRIBER_BUFFER", 16),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ReopenWindow returns how long after resolution a ticket may be reopened.
func (i InboxConfig) ReopenWindow() time.Duration {
	if i.ReopenWindowHours <= 0 {
		return 168 * time.Hour
	}
	return time.Duration(i.ReopenWindowHours) * time.Hour
}

// SweepInterval returns the cadence of the background auto-close sweep.
func (i InboxConfig) SweepInterval() time.Duration {
	if i.SweepIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(i.SweepIntervalMinutes) * time.Minute
}

// KeepAlive returns the SSE keep-alive interval.
func (i InboxConfig) KeepAlive() time.Duration {
	if i.KeepAliveSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(i.KeepAliveSeconds) * time.Second
}

// CacheTTL returns how long resolved customer context stays cached.
func (s ShopifyConfig) CacheTTL() time.Duration {
	if s.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
