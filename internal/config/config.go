// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	minProductionSecretLen = 32
)

type Config struct {
	App           AppConfig       `koanf:"app"`
	Server        ServerConfig    `koanf:"server"`
	Database      DatabaseConfig  `koanf:"database"`
	Mongo         MongoConfig     `koanf:"mongo"`
	Redis         RedisConfig     `koanf:"redis"`
	JWT           JWTConfig       `koanf:"jwt"`
	OTP           OTPConfig       `koanf:"otp"`
	Mail          MailConfig      `koanf:"mail"`
	Cookie        CookieConfig    `koanf:"cookie"`
	User          UserConfig      `koanf:"user"`
	RateLimit     RateLimitConfig `koanf:"rate_limit"`
	AuthRateLimit RateLimitConfig `koanf:"auth_rate_limit"`
	CORS          CORSConfig      `koanf:"cors"`
	Log           LogConfig       `koanf:"log"`
	Otel          OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	DrainDelay      time.Duration `koanf:"drain_delay"`
}

// DatabaseConfig selects the record store. Driver "postgres" uses URL and
// the pool settings; driver "mongo" uses MongoConfig.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	URL             string        `koanf:"url"`
	Migrate         bool          `koanf:"migrate"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
	MaxPool  uint64        `koanf:"max_pool"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	AccessSecret       string        `koanf:"access_secret"`
	RefreshSecret      string        `koanf:"refresh_secret"`
	ResetSecret        string        `koanf:"reset_secret"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	ResetTokenExpire   time.Duration `koanf:"reset_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type OTPConfig struct {
	Length int           `koanf:"length"`
	TTL    time.Duration `koanf:"ttl"`
}

type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	AppURL   string `koanf:"app_url"`
	ResetURL string `koanf:"reset_url"`
}

type CookieConfig struct {
	AccessName    string        `koanf:"access_name"`
	RefreshName   string        `koanf:"refresh_name"`
	AccessMaxAge  time.Duration `koanf:"access_max_age"`
	RefreshMaxAge time.Duration `koanf:"refresh_max_age"`
	Domain        string        `koanf:"domain"`
}

type UserConfig struct {
	DefaultAvatar string `koanf:"default_avatar"`
	DefaultBio    string `koanf:"default_bio"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration once per process. Later calls return the first
// result.
func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Insighta",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.drain_delay":      "5s",

		"database.driver":             DriverMongo,
		"database.migrate":            true,
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"mongo.database": "insighta",
		"mongo.timeout":  "10s",
		"mongo.max_pool": 50,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "1h",
		"jwt.refresh_token_expire": "168h",
		"jwt.reset_token_expire":   "15m",
		"jwt.issuer":               "insighta",
		"jwt.audience":             "insighta-api",

		"otp.length": 6,
		"otp.ttl":    "10m",

		"mail.enabled":   false,
		"mail.port":      587,
		"mail.from":      "Insighta <no-reply@insighta.local>",
		"mail.app_url":   "http://localhost:5173",
		"mail.reset_url": "http://localhost:5173/reset-password",

		"cookie.access_name":     "access_token",
		"cookie.refresh_name":    "refresh_token",
		"cookie.access_max_age":  "1h",
		"cookie.refresh_max_age": "168h",

		"user.default_avatar": "https://res.cloudinary.com/insighta/image/upload/v1/avatars/default.png",
		"user.default_bio":    "This user prefers to keep an air of mystery about them.",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"auth_rate_limit.requests": 10,
		"auth_rate_limit.window":   "1m",
		"auth_rate_limit.burst":    5,

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":        "info",
		"log.format":       "json",
		"log.max_size_mb":  100,
		"log.max_backups":  5,
		"log.max_age_days": 28,

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "insighta",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_DRIVER":             "database.driver",
	"DATABASE_URL":                "database.url",
	"DATABASE_MIGRATE":            "database.migrate",
	"MONGO_URI":                   "mongo.uri",
	"MONGO_DATABASE":              "mongo.database",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"LOG_FILE":                    "log.file",
	"JWT_ACCESS_SECRET":           "jwt.access_secret",
	"JWT_REFRESH_SECRET":          "jwt.refresh_secret",
	"JWT_RESET_SECRET":            "jwt.reset_secret",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":    "jwt.refresh_token_expire",
	"JWT_RESET_TOKEN_EXPIRE":      "jwt.reset_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"OTP_LENGTH":                  "otp.length",
	"OTP_TTL":                     "otp.ttl",
	"MAIL_ENABLED":                "mail.enabled",
	"SMTP_HOST":                   "mail.host",
	"SMTP_PORT":                   "mail.port",
	"SMTP_USER":                   "mail.username",
	"SMTP_PASSWORD":               "mail.password",
	"SENDER_EMAIL":                "mail.from",
	"APP_URL":                     "mail.app_url",
	"RESET_PASSWORD_URL":          "mail.reset_url",
	"COOKIE_DOMAIN":               "cookie.domain",
	"DEFAULT_AVATAR_URL":          "user.default_avatar",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"AUTH_RATE_LIMIT_REQUESTS":    "auth_rate_limit.requests",
	"AUTH_RATE_LIMIT_WINDOW":      "auth_rate_limit.window",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	switch c.Database.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if err := validateSecrets(c); err != nil {
		return err
	}

	if c.JWT.AccessTokenExpire <= 0 ||
		c.JWT.RefreshTokenExpire <= 0 ||
		c.JWT.ResetTokenExpire <= 0 {
		return fmt.Errorf("jwt token lifetimes must be positive")
	}

	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("otp.length must be between 4 and 10")
	}

	if c.OTP.TTL <= 0 {
		return fmt.Errorf("otp.ttl must be positive")
	}

	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when mail is enabled")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func validateSecrets(c *Config) error {
	secrets := map[string]string{
		"JWT_ACCESS_SECRET":  c.JWT.AccessSecret,
		"JWT_REFRESH_SECRET": c.JWT.RefreshSecret,
		"JWT_RESET_SECRET":   c.JWT.ResetSecret,
	}

	for name, secret := range secrets {
		if secret == "" {
			return fmt.Errorf("%s is required", name)
		}
		if c.IsProduction() && len(secret) < minProductionSecretLen {
			return fmt.Errorf(
				"%s must be at least %d bytes in production",
				name,
				minProductionSecretLen,
			)
		}
	}

	if c.JWT.AccessSecret == c.JWT.RefreshSecret ||
		c.JWT.AccessSecret == c.JWT.ResetSecret ||
		c.JWT.RefreshSecret == c.JWT.ResetSecret {
		return fmt.Errorf("jwt secrets must be distinct per token purpose")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
