package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesFileAndErrorPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "app.log")
	errOut := filepath.Join(dir, "nested", "error.log")

	log, err := NewLogger(
		WithLevel("debug"),
		WithEncoding("json"),
		WithOutputPaths([]string{out}),
		WithErrorPaths([]string{errOut}),
	)
	require.NoError(t, err)

	log.Info("document processed", String("filename", "a.pdf"))
	log.Error("extraction failed", String("filename", "b.pdf"))
	require.NoError(t, log.Sync())

	all, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(all), "document processed")
	assert.Contains(t, string(all), "extraction failed")

	errs, err := os.ReadFile(errOut)
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "document processed")
	assert.Contains(t, string(errs), "extraction failed")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(WithLevel("loud"), WithOutputPaths([]string{"stdout"}), WithErrorPaths(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse log level")
}

func TestWithConfig_ReplacesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.OutputPaths = []string{filepath.Join(t.TempDir(), "w.log")}
	cfg.ErrorPaths = nil
	cfg.InitialFields = nil

	log, err := NewLogger(WithConfig(cfg))
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(cfg.OutputPaths[0])
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.True(t, strings.Contains(string(data), "shown"))
}

func TestTestLogger_ChildrenShareEntries(t *testing.T) {
	log := NewTestLogger()
	child := log.Named("pipeline").With(String("batch", "1"))

	child.Warn("rule skipped")
	log.Info("started")

	entries := log.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "pipeline", entries[0].Logger)
	assert.Len(t, entries[0].Fields, 1)
	assert.Equal(t, 1, log.Count("WARN", "rule skipped"))

	log.Clear()
	assert.Empty(t, log.GetEntries())
}
