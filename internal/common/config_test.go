package common

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 0.85, cfg.Pipeline.HighThreshold)
	assert.Equal(t, 0.60, cfg.Pipeline.LowThreshold)
	assert.Equal(t, 5, cfg.Pipeline.TopK)
	assert.Equal(t, "gpt-5-mini", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 20000, cfg.Embedding.CacheSize)
	assert.Equal(t, "auto", cfg.Extractor.Backend)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 15*time.Minute, cfg.Server.JobRetention)
	assert.InDelta(t, 0.85, cfg.Pipeline.RegexWeight+cfg.Pipeline.PositionalWeight, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("T_HIGH", "0.9")
	t.Setenv("T_LOW", "0.5")
	t.Setenv("TOP_K", "7")
	t.Setenv("OPENAI_TIMEOUT", "5s")
	t.Setenv("EMBEDDING_SERIALIZE", "true")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg := LoadConfig()
	assert.Equal(t, 0.9, cfg.Pipeline.HighThreshold)
	assert.Equal(t, 0.5, cfg.Pipeline.LowThreshold)
	assert.Equal(t, 7, cfg.Pipeline.TopK)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Embedding.Serialize)
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"low above high", func(c *Config) { c.Pipeline.LowThreshold = 0.9; c.Pipeline.HighThreshold = 0.8 }},
		{"weights do not sum to one", func(c *Config) { c.Pipeline.RegexWeight = 0.9 }},
		{"unknown backend", func(c *Config) { c.Extractor.Backend = "ocr" }},
		{"cache driver without dsn", func(c *Config) { c.Cache.Driver = "sqlite" }},
		{"openai embeddings without key", func(c *Config) { c.Embedding.Provider = "openai" }},
		{"zero top k", func(c *Config) { c.Pipeline.TopK = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, "CONFIG_ERROR", ErrorCode(err))
		})
	}
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := newLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
