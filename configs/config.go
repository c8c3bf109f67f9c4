package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Upstream UpstreamConfig
	Offline  OfflineConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig locates the origin API the gateway fronts.
type UpstreamConfig struct {
	// Origin is the base URL every same-origin request is resolved against.
	Origin string
	// MaxIdleConns tunes the shared transport to the origin.
	MaxIdleConns int
}

// OfflineConfig tunes the caching strategies and container generations.
type OfflineConfig struct {
	// CachePrefix namespaces every container this product owns.
	CachePrefix string
	// StaticVersion and DynamicVersion tag the two live containers. Bumping
	// a tag retires the old container on the next activation.
	StaticVersion  string
	DynamicVersion string
	// SyncTag names the background trigger that fires a queue drain.
	SyncTag string
	// NetworkTimeout bounds network-first attempts; constrained clients get
	// the shorter ConstrainedTimeout instead.
	NetworkTimeout     time.Duration
	ConstrainedTimeout time.Duration
	// DynamicEntryCeiling caps dynamic-container growth on constrained
	// clients; the oldest entry is evicted once the cap is crossed.
	DynamicEntryCeiling int
	// PrecacheManifest lists the must-have offline assets fetched at install.
	PrecacheManifest []string
}

// StaticContainer returns the live static container name, version tag embedded.
func (o *OfflineConfig) StaticContainer() string {
	return fmt.Sprintf("%s-static-%s", o.CachePrefix, o.StaticVersion)
}

// DynamicContainer returns the live dynamic container name.
func (o *OfflineConfig) DynamicContainer() string {
	return fmt.Sprintf("%s-dynamic-%s", o.CachePrefix, o.DynamicVersion)
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "offline_gateway"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Upstream: UpstreamConfig{
			Origin:       getEnvRequired("UPSTREAM_ORIGIN"),
			MaxIdleConns: getIntEnv("UPSTREAM_MAX_IDLE_CONNS", 32),
		},
		Offline: OfflineConfig{
			CachePrefix:         getEnv("CACHE_PREFIX", "video-task-manager"),
			StaticVersion:       getEnv("CACHE_STATIC_VERSION", "v3"),
			DynamicVersion:      getEnv("CACHE_DYNAMIC_VERSION", "v3"),
			SyncTag:             getEnv("SYNC_TAG", "sync-offline-actions"),
			NetworkTimeout:      getDurationEnv("NETWORK_TIMEOUT", 20*time.Second),
			ConstrainedTimeout:  getDurationEnv("CONSTRAINED_NETWORK_TIMEOUT", 8*time.Second),
			DynamicEntryCeiling: getIntEnv("DYNAMIC_ENTRY_CEILING", 50),
			PrecacheManifest: getListEnv("PRECACHE_MANIFEST", []string{
				"/",
				"/offline",
				"/static/css/app.css",
				"/static/js/app.js",
				"/manifest.json",
			}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
