package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	StorageDriver string

	Mongo       MongoConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Master      MasterConfig
	Cookie      CookieConfig
	CORS        CORSConfig
	Log         LogConfig
	Certificate CertificateConfig
	Session     SessionConfig
	Cache       CacheConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// MasterConfig holds the operator credential pair. PasswordHash, when set,
// is a bcrypt hash that takes precedence over Password.
type MasterConfig struct {
	Username     string
	Password     string
	PasswordHash string
}

type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CertificateConfig drives certificate numbering and rendering.
type CertificateConfig struct {
	Prefix        string
	VerifyBaseURL string
	Location      *time.Location
}

// SessionConfig toggles server-side revocation of logged out tokens.
type SessionConfig struct {
	RevocationEnabled bool
}

// CacheConfig governs the public verification cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// RedisRequired reports whether any feature needs a Redis connection.
func (c *Config) RedisRequired() bool {
	return c.Session.RevocationEnabled || c.Cache.Enabled
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

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER")))
	switch cfg.StorageDriver {
	case StorageMongo, StoragePostgres, StorageMemory:
	default:
		return nil, errors.New("STORAGE_DRIVER must be one of mongo, postgres, memory")
	}

	cfg.Mongo = MongoConfig{
		URI:            v.GetString("MONGODB_URI"),
		Database:       v.GetString("MONGODB_DATABASE"),
		ConnectTimeout: parseDuration(v.GetString("MONGODB_CONNECT_TIMEOUT"), 10*time.Second),
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.Master = MasterConfig{
		Username:     v.GetString("MASTER_USERNAME"),
		Password:     v.GetString("MASTER_PASSWORD"),
		PasswordHash: v.GetString("MASTER_PASSWORD_HASH"),
	}

	cfg.Cookie = CookieConfig{
		Name:   v.GetString("COOKIE_NAME"),
		Domain: v.GetString("COOKIE_DOMAIN"),
		Secure: v.GetBool("COOKIE_SECURE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("CORS_ORIGIN"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, err
	}
	cfg.Certificate = CertificateConfig{
		Prefix:        strings.ToUpper(strings.TrimSpace(v.GetString("CERTIFICATE_PREFIX"))),
		VerifyBaseURL: strings.TrimRight(v.GetString("CERTIFICATE_VERIFY_BASE_URL"), "/"),
		Location:      loc,
	}

	cfg.Session = SessionConfig{
		RevocationEnabled: v.GetBool("SESSION_REVOCATION_ENABLED"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("STORAGE_DRIVER", StorageMongo)

	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "evxlab")
	v.SetDefault("MONGODB_CONNECT_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "evxlab_certificates")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "168h")

	v.SetDefault("MASTER_USERNAME", "")
	v.SetDefault("MASTER_PASSWORD", "")
	v.SetDefault("MASTER_PASSWORD_HASH", "")

	v.SetDefault("COOKIE_NAME", "token")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", true)

	v.SetDefault("CORS_ORIGIN", "https://www.evxlab.co.in")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CERTIFICATE_PREFIX", "EVXLAB")
	v.SetDefault("CERTIFICATE_VERIFY_BASE_URL", "https://www.evxlab.co.in/verify")
	v.SetDefault("TIMEZONE", "UTC")

	v.SetDefault("SESSION_REVOCATION_ENABLED", false)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "10m")
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
