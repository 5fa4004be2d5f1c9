package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Oracle   OracleConfig
	Realtime RealtimeConfig
}

type AppConfig struct {
	Environment string
	HTTPPort    string
}

type StorageConfig struct {
	DatabaseURL string
	RedisURL    string
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

type OracleConfig struct {
	APIKey   string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type RealtimeConfig struct {
	RequireToken   bool
	AllowedOrigins []string
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	ErrInvalidEnv         = errors.New("invalid environment variable")
)

// IsMissing сообщает, что в окружении не хватает обязательных ключей.
func IsMissing(err error) bool {
	return errors.Is(err, errMissingRequiredEnv)
}

func (c AppConfig) Production() bool {
	return c.Environment == "production"
}

// LoadDotenv подгружает .env.local, затем .env. Уже заданные переменные не перезаписываются.
func LoadDotenv(files ...string) {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load читает конфигурацию из окружения процесса.
func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return def
	}
	dur := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}
	flag := func(key string, def bool) bool {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			invalid = append(invalid, key)
			return def
		}
		return b
	}

	cfg.App = AppConfig{
		Environment: opt("APP_ENV", "development"),
		HTTPPort:    opt("PORT", "8080"),
	}

	cfg.Storage = StorageConfig{
		DatabaseURL: opt("DATABASE_URL", ""),
		RedisURL:    opt("REDIS_URL", ""),
	}

	cfg.Auth = AuthConfig{
		JWTSecret: req("JWT_SECRET"),
		JWTTTL:    dur("JWT_TTL", 24*time.Hour),
	}

	cfg.Oracle = OracleConfig{
		APIKey:   opt("OPENAI_API_KEY", ""),
		Model:    opt("OPENAI_MODEL", "gpt-4o"),
		Timeout:  dur("ORACLE_TIMEOUT", 8*time.Second),
		CacheTTL: dur("ORACLE_CACHE_TTL", 10*time.Minute),
	}

	var origins []string
	for _, o := range strings.Split(opt("WS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.Realtime = RealtimeConfig{
		RequireToken:   flag("WS_REQUIRE_TOKEN", false),
		AllowedOrigins: origins,
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}
