package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `{
		"app": {"AppPort": "9000", "AllowedOrigins": [" https://chirp.example ", ""]},
		"database": {"DBHost": "db", "DBName": "chirp"},
		"redis": {"RedisHost": "cache"},
		"clerk": {"SecretKey": "sk_test_file"},
		"ratelimit": {"PostWindowSeconds": 30}
	}`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.AppPort)
	require.Equal(t, []string{"https://chirp.example"}, cfg.AllowedOrigins)
	require.Equal(t, "mysql", cfg.DBDriver)
	require.Equal(t, "sk_test_file", cfg.ClerkSecretKey)
	require.Equal(t, 3, cfg.PostRateLimit)
	require.Equal(t, 30*time.Second, cfg.PostRateWindow)
	require.Equal(t, "https://api.clerk.com/v1", cfg.ClerkAPIURL)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"clerk": {"SecretKey": "sk_test_file"}}`)
	t.Setenv("CLERK_SECRET_KEY", "sk_test_env")
	t.Setenv("POST_RATE_LIMIT", "5")
	t.Setenv("POST_RATE_WINDOW", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://app:pw@db:5432/chirp")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "sk_test_env", cfg.ClerkSecretKey)
	require.Equal(t, 5, cfg.PostRateLimit)
	require.Equal(t, 2*time.Minute, cfg.PostRateWindow)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, "postgres", cfg.DBDriver)
}

func TestLoadFrom_ValidationFailure(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "CLERK_SECRET_KEY")
}

func TestLoadFrom_SkipValidation(t *testing.T) {
	t.Setenv("SKIP_ENV_VALIDATION", "true")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.True(t, cfg.SkipEnvValidation)
	require.Empty(t, cfg.ClerkSecretKey)
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"app": `)
	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := AppConfig{DBDriver: "sqlite"}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"CLERK_SECRET_KEY", "DATABASE_URL", "sqlite", "REDIS_HOST", "POST_RATE_LIMIT", "POST_RATE_WINDOW"} {
		require.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}

func TestDSN(t *testing.T) {
	mysqlCfg := AppConfig{DBDriver: "mysql", DBUser: "root", DBPassword: "pw", DBHost: "db", DBName: "chirp"}
	require.Equal(t, "root:pw@tcp(db:3306)/chirp?charset=utf8mb4&parseTime=True&loc=UTC", mysqlCfg.DSN())

	pgCfg := AppConfig{DBDriver: "postgres", DBUser: "app", DBPassword: "pw", DBHost: "db", DBPort: "6432", DBName: "chirp"}
	require.Equal(t, "host=db port=6432 user=app password=pw dbname=chirp sslmode=disable", pgCfg.DSN())

	uriCfg := AppConfig{DBDriver: "postgres", DatabaseURI: "postgres://x"}
	require.Equal(t, "postgres://x", uriCfg.DSN())
}

func TestLoadFrom_RequiresDatabaseAndRedis(t *testing.T) {
	t.Setenv("CLERK_SECRET_KEY", "sk_test_env")
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
	require.Contains(t, err.Error(), "REDIS_HOST")

	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "chirp")
	t.Setenv("REDIS_HOST", "cache")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Equal(t, "db", cfg.DBHost)
	require.Equal(t, "cache", cfg.RedisHost)
}
