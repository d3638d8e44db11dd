package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/karupanerura/golox/internal/config"
	"github.com/karupanerura/golox/internal/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.Equal(t, expression.DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, expression.DefaultMaxEvaluationDepth, cfg.MaxEvaluationDepth)
	assert.True(t, cfg.Strict)
	assert.Zero(t, cfg.Timeout)
	assert.NoError(t, cfg.Validate())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "golox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_depth: 32
strict: false
timeout: 1500ms
prompt: "lox> "
log_level: debug
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.MaxDepth)
	assert.Equal(t, expression.DefaultMaxEvaluationDepth, cfg.MaxEvaluationDepth)
	assert.False(t, cfg.Strict)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "lox> ", cfg.Prompt)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for name, source := range map[string]string{
		"unknown key":  "max_dpth: 3\n",
		"bad duration": "timeout: soon\n",
		"bad level":    "log_level: loud\n",
		"zero workers": "concurrency: 0\n",
		"negative":     "timeout: -1s\n",
	} {
		source := source
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(source))
			assert.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"GOLOX_MAX_DEPTH": "8",
		"GOLOX_STRICT":    "false",
		"GOLOX_TIMEOUT":   "2s",
		"GOLOX_LOG_LEVEL": "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := config.Default()
	require.NoError(t, config.LoadEnv(cfg, lookup))
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.False(t, cfg.Strict)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)

	env["GOLOX_MAX_DEPTH"] = "deep"
	assert.Error(t, config.LoadEnv(config.Default(), lookup))
}
