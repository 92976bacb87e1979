package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
store:
  driver: postgres
postgres:
  dsn: host=db
jwt:
  secret: s3cret
  expiration: 2h
geofence:
  cacheMaxAge: 1m
attendance:
  locationTimeout: 5s
`)
	t.Setenv("POSTGRES_DSN", "host=override")
	t.Setenv("GEOFENCE_UNCONFIGURED_POLICY", "allow")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "host=override", cfg.Postgres.DSN)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, time.Minute, cfg.Geofence.CacheMaxAge)
	assert.Equal(t, "allow", cfg.Geofence.UnconfiguredPolicy)
	assert.Equal(t, 5*time.Second, cfg.Attendance.LocationTimeout)

	// defaults
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Attendance.PhotoUploadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Attendance.MaxFixAge)
	assert.Equal(t, 10, cfg.Postgres.RetryAttempts)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "x")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "reject", cfg.Geofence.UnconfiguredPolicy)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver":    "store:\n  driver: redis\njwt:\n  secret: x\n",
		"mongo without uri": "store:\n  driver: mongo\njwt:\n  secret: x\n",
		"bad policy":        "store:\n  driver: memory\njwt:\n  secret: x\ngeofence:\n  unconfiguredPolicy: maybe\n",
		"no secret":         "store:\n  driver: memory\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
