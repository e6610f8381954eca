package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "env: production\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, DriverMongo, cfg.Docstore.Driver)
	assert.Equal(t, "notes", cfg.Docstore.Collection)
	assert.Equal(t, time.Second, cfg.QuietPeriod())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
port: 8080
env: production
database:
  host: db.internal
  port: 3307
  user: notes
  password: secret
  name: notesdb
docstore:
  driver: memory
redis_url: redis://cache:6379/1
jwt_secret: super-secret
allowed_origins:
  - "notes.example.com"
  - "*.example.org"
autosave:
  quiet_ms: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Docstore.Driver)
	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Equal(t, []string{"notes.example.com", "*.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.QuietPeriod())

	dsn := cfg.Database.DSNValue()
	assert.Contains(t, dsn, "notes:secret@tcp(db.internal:3307)/notesdb")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestLoadVerbatimDSNWins(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "user:pw@tcp(1.2.3.4:3306)/db"
  host: ignored
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "user:pw@tcp(1.2.3.4:3306)/db", cfg.Database.DSNValue())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "bogus_key: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "port: 99999\n"},
		{"bad docstore driver", "docstore:\n  driver: dynamo\n"},
		{"bad quiet period", "autosave:\n  quiet_ms: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
