package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "http://127.0.0.1:8000/api/auth", cfg.Backend.BaseURL)
	assert.Equal(t, []string{"/token/refresh/", "/refresh/", "/jwt/refresh/"}, cfg.Backend.RefreshPaths)
	assert.Len(t, cfg.Backend.AvailabilityCandidates, 6)
	assert.Len(t, cfg.Backend.BlackoutCandidates, 5)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 8, cfg.Backend.ProfileConcurrency)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com/api/auth/")
	t.Setenv("AVAILABILITY_ENDPOINT", "/crud/disponibilidades-semanales/")
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("SESSION_REVALIDATE_INTERVAL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api/auth", cfg.Backend.BaseURL)
	assert.Equal(t, "/crud/disponibilidades-semanales/", cfg.Backend.AvailabilityEndpoint)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, 90*time.Second, cfg.Session.RevalidateInterval)
}

func TestValidateRejectsUnknownStore(t *testing.T) {
	cfg := &Config{Backend: BackendConfig{BaseURL: "http://x"}, Session: SessionConfig{Store: "file"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	cfg := &Config{
		Env:     EnvProduction,
		Backend: BackendConfig{BaseURL: "http://x"},
		Session: SessionConfig{Store: SessionStoreMemory, Secret: defaultSessionSecret},
	}
	assert.Error(t, cfg.Validate())

	cfg.Session.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("garbage", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
