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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Table    TableConfig
	Views    ViewsConfig
	Console  ConsoleConfig
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

	// StatementTimeout caps every query of a session; zero disables it.
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	OpTimeout time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TableConfig tunes data-table behaviour shared by the gateway and the console.
type TableConfig struct {
	Debounce       time.Duration
	DefaultPerPage int
	MaxPerPage     int
	CacheTTL       time.Duration
}

// ViewsConfig governs saved view caching.
type ViewsConfig struct {
	CacheTTL time.Duration
}

// ConsoleConfig configures the smactl client.
type ConsoleConfig struct {
	APIURL         string
	Timeout        time.Duration
	KeyringService string
	Token          string
	DateLayout     string
	ExportDir      string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 0),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),

		OpTimeout: parseDuration(v.GetString("REDIS_OP_TIMEOUT"), 500*time.Millisecond),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
		Expiry: parseDuration(v.GetString("JWT_EXPIRY"), 15*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Table = TableConfig{
		Debounce:       parseDuration(v.GetString("TABLE_DEBOUNCE"), 300*time.Millisecond),
		DefaultPerPage: positiveOr(v.GetInt("TABLE_DEFAULT_PER_PAGE"), 10),
		MaxPerPage:     positiveOr(v.GetInt("TABLE_MAX_PER_PAGE"), 100),
		CacheTTL:       parseDuration(v.GetString("TABLE_CACHE_TTL"), 30*time.Second),
	}

	cfg.Views = ViewsConfig{
		CacheTTL: parseDuration(v.GetString("VIEWS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Console = ConsoleConfig{
		APIURL:         strings.TrimRight(v.GetString("CONSOLE_API_URL"), "/"),
		Timeout:        parseDuration(v.GetString("CONSOLE_TIMEOUT"), 10*time.Second),
		KeyringService: v.GetString("CONSOLE_KEYRING_SERVICE"),
		Token:          v.GetString("CONSOLE_TOKEN"),
		DateLayout:     v.GetString("CONSOLE_DATE_LAYOUT"),
		ExportDir:      v.GetString("CONSOLE_EXPORT_DIR"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admin_panel_sma")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "5s")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_OP_TIMEOUT", "500ms")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_EXPIRY", "15m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TABLE_DEBOUNCE", "300ms")
	v.SetDefault("TABLE_DEFAULT_PER_PAGE", 10)
	v.SetDefault("TABLE_MAX_PER_PAGE", 100)
	v.SetDefault("TABLE_CACHE_TTL", "30s")
	v.SetDefault("VIEWS_CACHE_TTL", "10m")

	v.SetDefault("CONSOLE_API_URL", "http://localhost:8080/api/v1")
	v.SetDefault("CONSOLE_TIMEOUT", "10s")
	v.SetDefault("CONSOLE_KEYRING_SERVICE", "smactl")
	v.SetDefault("CONSOLE_TOKEN", "")
	v.SetDefault("CONSOLE_DATE_LAYOUT", "Jan 2, 2006")
	v.SetDefault("CONSOLE_EXPORT_DIR", "")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
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
