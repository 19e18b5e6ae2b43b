package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type CacheConfig struct {
	RedisURL  string
	KeyPrefix string
}

type ContractsConfig struct {
	NumberPrefix string
	ExpiringDays int
	Timezone     string
}

type PDFConfig struct {
	FontPath     string
	BoldFontPath string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Cache       CacheConfig
	Contracts   ContractsConfig
	PDF         PDFConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Cache: CacheConfig{
			RedisURL:  v.GetString("REDIS_URL"),
			KeyPrefix: v.GetString("CACHE_KEY_PREFIX"),
		},
		Contracts: ContractsConfig{
			NumberPrefix: v.GetString("CONTRACTS_NUMBER_PREFIX"),
			ExpiringDays: v.GetInt("CONTRACTS_EXPIRING_DAYS"),
			Timezone:     v.GetString("CONTRACTS_TIMEZONE"),
		},
		PDF: PDFConfig{
			FontPath:     v.GetString("PDF_FONT_PATH"),
			BoldFontPath: v.GetString("PDF_BOLD_FONT_PATH"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "plantrent:page:"
	}
	if cfg.Contracts.NumberPrefix == "" {
		cfg.Contracts.NumberPrefix = "HD"
	}
	if cfg.Contracts.ExpiringDays == 0 {
		cfg.Contracts.ExpiringDays = 30
	}
	if cfg.Contracts.Timezone == "" {
		cfg.Contracts.Timezone = "Asia/Ho_Chi_Minh"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Contracts.ExpiringDays < 0 {
		return fmt.Errorf("CONTRACTS_EXPIRING_DAYS must not be negative")
	}
	if _, err := time.LoadLocation(cfg.Contracts.Timezone); err != nil {
		return fmt.Errorf("invalid CONTRACTS_TIMEZONE: %w", err)
	}
	if cfg.DB.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(cfg.DB.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
		}
	}
	return nil
}

// Location resolves the timezone used for contract dates and numbering.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Contracts.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
