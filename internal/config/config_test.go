package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// chdir switches the working directory for one test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const sampleYAML = `
env: "prod"
log_level: "warn"
http:
  host: "127.0.0.1"
  port: "9090"
  public_base_url: "https://bio.example"
cors:
  allowed_origins: ["https://app.bio.example"]
storage:
  driver: "mongo"
mongo:
  uri: "mongodb://localhost:27017"
  database: "biotree_test"
auth:
  mode: "jwt"
  jwt_secret: "s3cret"
redis:
  url: "redis://localhost:6379/0"
  cache_ttl: "1m"
onboarding:
  username_debounce: "250ms"
  links_autosave: "2s"
  bio_max: 280
timeouts:
  request: "5s"
`

const localYAML = `
auth:
  mode: "jwt"
  jwt_secret: "from-local"
`

const brokenYAML = `
auth:
  mode: "jwt"
  jwt_secret: ["unterminated"
`

func TestHTTPConfig_Addr(t *testing.T) {
	require.Equal(t, "127.0.0.1:8080", HTTPConfig{Host: "127.0.0.1", Port: "8080"}.Addr())
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "config.yaml", sampleYAML))
	require.NoError(t, err)

	require.True(t, cfg.IsProd())
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr())
	require.Equal(t, "https://bio.example", cfg.HTTP.PublicBaseURL)
	require.Equal(t, []string{"https://app.bio.example"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, DriverMongo, cfg.Storage.Driver)
	require.Equal(t, "biotree_test", cfg.Mongo.Database)
	require.Equal(t, AuthJWT, cfg.Auth.Mode)
	require.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	require.Equal(t, 250*time.Millisecond, cfg.Onboarding.UsernameDebounce)
	require.Equal(t, 2*time.Second, cfg.Onboarding.LinksAutoSave)
	require.Equal(t, 280, cfg.Onboarding.BioMax)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Request)
	// defaults fill what the file leaves out
	require.Equal(t, 2*time.Second, cfg.Timeouts.ViewCount)
	require.Equal(t, "profile.events", cfg.RabbitMQ.Exchange)
}

func TestLoad_ExplicitPathWinsOverConfigPath(t *testing.T) {
	dir := t.TempDir()
	explicit := writeFile(t, dir, "explicit.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "env.yaml", localYAML))

	cfg, err := Load(explicit)
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "env.yaml", localYAML))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-local", cfg.Auth.JWTSecret)
	require.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.Equal(t, 500, cfg.Onboarding.BioMax)
	require.Equal(t, 500*time.Millisecond, cfg.Onboarding.UsernameDebounce)
	require.Equal(t, 3*time.Second, cfg.Onboarding.LinksAutoSave)
}

func TestLoad_LocalYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "local.yaml", localYAML)
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-local", cfg.Auth.JWTSecret)
	require.False(t, cfg.IsProd())
}

func TestLoad_EnvOnly(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("BIO_MAX", "300")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
	require.Equal(t, "7000", cfg.HTTP.Port)
	require.Equal(t, 300, cfg.Onboarding.BioMax)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JWT_SECRET", "overridden")

	cfg, err := Load(writeFile(t, dir, "config.yaml", sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "overridden", cfg.Auth.JWTSecret)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "broken yaml", yaml: brokenYAML},
		{name: "unknown driver", yaml: "storage: {driver: sqlite}\nauth: {mode: jwt, jwt_secret: x}\n"},
		{name: "mongo without uri", yaml: "storage: {driver: mongo}\nauth: {mode: jwt, jwt_secret: x}\n"},
		{name: "jwt without secret", yaml: "auth: {mode: jwt}\n"},
		{name: "firebase without project", yaml: "auth: {mode: firebase}\n"},
		{name: "unknown auth mode", yaml: "auth: {mode: basic}\n"},
		{name: "zero bio max", yaml: "auth: {mode: jwt, jwt_secret: x}\nonboarding: {bio_max: -1}\n"},
		{name: "negative debounce", yaml: "auth: {mode: jwt, jwt_secret: x}\nonboarding: {username_debounce: -1s}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, "bad.yaml", tt.yaml))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	require.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
