package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store backends.
const (
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend  BackendConfig
	Session  SessionConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// BackendConfig describes the external REST backend the portal fronts.
type BackendConfig struct {
	BaseURL                string
	Timeout                time.Duration
	RefreshPaths           []string
	AvailabilityEndpoint   string
	BlackoutEndpoint       string
	AvailabilityCandidates []string
	BlackoutCandidates     []string
	ProbeOnStartup         bool
	ProfileConcurrency     int
}

// SessionConfig controls how browser sessions are persisted and re-validated.
type SessionConfig struct {
	Store              string
	TTL                time.Duration
	CookieName         string
	Secret             string
	CookieSecure       bool
	RevalidateInterval time.Duration
	Workers            int
}

// CatalogConfig tunes caching of static reference data.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		BaseURL:                strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout:                parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		RefreshPaths:           splitAndTrim(v.GetString("BACKEND_REFRESH_PATHS")),
		AvailabilityEndpoint:   v.GetString("AVAILABILITY_ENDPOINT"),
		BlackoutEndpoint:       v.GetString("BLACKOUT_ENDPOINT"),
		AvailabilityCandidates: splitAndTrim(v.GetString("AVAILABILITY_CANDIDATES")),
		BlackoutCandidates:     splitAndTrim(v.GetString("BLACKOUT_CANDIDATES")),
		ProbeOnStartup:         v.GetBool("PROBE_ON_STARTUP"),
		ProfileConcurrency:     v.GetInt("PROFILE_CONCURRENCY"),
	}

	cfg.Session = SessionConfig{
		Store:              strings.ToLower(v.GetString("SESSION_STORE")),
		TTL:                parseDuration(v.GetString("SESSION_TTL"), 7*24*time.Hour),
		CookieName:         v.GetString("SESSION_COOKIE_NAME"),
		Secret:             v.GetString("SESSION_SECRET"),
		CookieSecure:       v.GetBool("SESSION_COOKIE_SECURE"),
		RevalidateInterval: parseDuration(v.GetString("SESSION_REVALIDATE_INTERVAL"), 5*time.Minute),
		Workers:            v.GetInt("SESSION_WORKERS"),
	}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("CATALOG_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the portal cannot start with.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis, SessionStorePostgres:
	default:
		return errors.New("SESSION_STORE must be one of memory, redis, postgres")
	}
	if c.Env == EnvProduction && (c.Session.Secret == "" || c.Session.Secret == defaultSessionSecret) {
		return errors.New("SESSION_SECRET must be set in production")
	}
	return nil
}

const defaultSessionSecret = "dev_session_secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "http://127.0.0.1:8000/api/auth")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_REFRESH_PATHS", "/token/refresh/,/refresh/,/jwt/refresh/")
	v.SetDefault("AVAILABILITY_ENDPOINT", "")
	v.SetDefault("BLACKOUT_ENDPOINT", "")
	v.SetDefault("AVAILABILITY_CANDIDATES", "/crud/disponibilidades/,/crud/disponibilidades-semanales/,/crud/disponibilidadsemanal/,/crud/disponibilidad-semanal/,/crud/disponibilidades_semanales/,/disponibilidades/")
	v.SetDefault("BLACKOUT_CANDIDATES", "/crud/bloqueos/,/crud/bloqueos-horario/,/crud/bloqueohorario/,/crud/bloqueos_horario/,/bloqueos/")
	v.SetDefault("PROBE_ON_STARTUP", false)
	v.SetDefault("PROFILE_CONCURRENCY", 8)

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_NAME", "myteacher_session")
	v.SetDefault("SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_REVALIDATE_INTERVAL", "5m")
	v.SetDefault("SESSION_WORKERS", 2)

	v.SetDefault("CATALOG_CACHE_ENABLED", false)
	v.SetDefault("CATALOG_CACHE_TTL", "10m")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "myteacher_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
