package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var allKeys = []string{
	"APP_ENV", "PORT", "DATABASE_URL", "REDIS_URL", "JWT_SECRET", "JWT_TTL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "ORACLE_TIMEOUT", "ORACLE_CACHE_TTL",
	"WS_REQUIRE_TOKEN", "WS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.HTTPPort != "8080" || cfg.App.Environment != "development" || cfg.App.Production() {
		t.Fatalf("app = %+v", cfg.App)
	}
	if cfg.Auth.JWTTTL != 24*time.Hour {
		t.Fatalf("jwt ttl = %v", cfg.Auth.JWTTTL)
	}
	if cfg.Oracle.Model != "gpt-4o" || cfg.Oracle.Timeout != 8*time.Second || cfg.Oracle.CacheTTL != 10*time.Minute {
		t.Fatalf("oracle = %+v", cfg.Oracle)
	}
	if cfg.Storage.DatabaseURL != "" || cfg.Storage.RedisURL != "" || cfg.Realtime.RequireToken {
		t.Fatalf("unexpected optional values: %+v %+v", cfg.Storage, cfg.Realtime)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ORACLE_TIMEOUT", "2s")
	t.Setenv("WS_REQUIRE_TOKEN", "true")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.App.Production() || cfg.Oracle.Timeout != 2*time.Second || !cfg.Realtime.RequireToken {
		t.Fatalf("cfg = %+v", cfg)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Realtime.AllowedOrigins, want) {
		t.Fatalf("origins = %v", cfg.Realtime.AllowedOrigins)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if !IsMissing(err) {
		t.Fatalf("got %v, want missing env error", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := map[string]string{
		"JWT_TTL":          "forever",
		"ORACLE_TIMEOUT":   "0s",
		"WS_REQUIRE_TOKEN": "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv(key, value)

			if _, err := Load(); !errors.Is(err, ErrInvalidEnv) {
				t.Fatalf("got %v, want invalid env error", err)
			}
		})
	}
}

func TestLoadDotenvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("JWT_SECRET=from-file\nPORT=9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")
	// godotenv пропускает только отсутствующие ключи; пустое значение считается заданным
	os.Unsetenv("JWT_SECRET")

	LoadDotenv(path)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.App.HTTPPort != "7070" {
		t.Fatalf("secret=%q port=%q", cfg.Auth.JWTSecret, cfg.App.HTTPPort)
	}
}
