package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "en", cfg.Indexer.DefaultLanguage)
	assert.Equal(t, "english", cfg.Languages["en"].Stemmer)
	assert.Contains(t, cfg.Languages["en"].Stopwords, "the")
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9000
  readTimeout: 5s
storage:
  driver: sqlite
sqlite:
  path: /tmp/index.db
languages:
  es:
    stemmer: spanish
    stopwords: [el, la, de]
synonyms:
  fast: [quick, speedy]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("SP_INDEXER_WORKERS", "4")
	t.Setenv("SP_CACHE_BACKEND", "redis")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/index.db", cfg.SQLite.Path)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, []string{"quick", "speedy"}, cfg.Synonyms["fast"])
	require.Contains(t, cfg.Languages, "es")
	require.Contains(t, cfg.Languages, "en")
	assert.Equal(t, "spanish", cfg.Languages["es"].Stemmer)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Indexer.DefaultLanguage = "xx"
	cfg.Storage.Driver = "mongo"
	cfg.Indexer.Workers = -1
	cfg.Server.RateLimit.Window = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default language "xx"`)
	assert.Contains(t, err.Error(), `unknown storage driver "mongo"`)
	assert.Contains(t, err.Error(), "workers must not be negative")
	assert.Contains(t, err.Error(), "rateLimit.window must be positive")
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 120, cfg.Server.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	assert.Equal(t, []string{"quick", "speedy"}, cfg.Synonyms["fast"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
