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
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.BatchDelay())
	assert.Equal(t, 0.7, cfg.RAG.DefaultThreshold)
	assert.Equal(t, 0.6, cfg.RAG.DebugThreshold)
	assert.Equal(t, int64(10<<20), cfg.RAG.MaxUploadBytes)
	assert.Equal(t, 10*time.Minute, cfg.QueryCacheTTL())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
driver = "postgres"

[postgres]
host = "db"
db = "lessons"

[rag]
chunk_size = 400
chunk_overlap = 80
async_processing = true
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RAG_CHUNK_OVERLAP", "40")
	t.Setenv("RAG_DEFAULT_THRESHOLD", "0.55")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("RAG_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 400, cfg.RAG.ChunkSize)
	assert.Equal(t, 40, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 0.55, cfg.RAG.DefaultThreshold)
	assert.True(t, cfg.RAG.AsyncProcessing)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5, cfg.RAG.BatchSize)
	assert.Equal(t, "host=db port=5432 user=postgres password= dbname=lessons sslmode=disable", cfg.PostgresDSN())
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[rag\nchunk_size ="), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.ErrorContains(t, err, "decode config file failed")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"overlap not below size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }, "rag.chunk_overlap"},
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }, "rag.chunk_size"},
		{"zero batch size", func(c *Config) { c.RAG.BatchSize = 0 }, "rag.batch_size"},
		{"threshold above one", func(c *Config) { c.RAG.DefaultThreshold = 1.2 }, "rag.default_threshold"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"openai without key", func(c *Config) { c.Embedding.Provider = "openai" }, "openai_api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, defaultConfig().Validate())
}
