package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Watch)
	assert.Equal(t, DefaultMaxDepth, cfg.Dump.MaxDepth)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("page_size: 25\nlog_level: debug\ndump:\n  max_depth: 7\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Dump.MaxDepth)
}

func TestLoad_ConfigFileFoundUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("page_size: 42\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.PageSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("page_size: 25\n"), 0o644))
	t.Setenv("VARLENS_PAGE_SIZE", "50")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PageSize)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VARLENS_PAGE_SIZE", "50")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", DefaultPageSize, "")
	require.NoError(t, flags.Parse([]string{"--page-size=7"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PageSize)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VARLENS_PAGE_SIZE", "50")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", DefaultPageSize, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PageSize, "flag defaults must not mask env vars")
}

func TestLoad_RejectsNonPositivePageSize(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VARLENS_PAGE_SIZE", "0")

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestNewLogger_Levels(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "text"}
	logger := NewLogger(cfg, os.Stderr)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	cfg = &Config{LogLevel: "error", LogFormat: "json"}
	logger = NewLogger(cfg, os.Stderr)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
