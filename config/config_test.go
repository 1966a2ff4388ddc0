package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Extraction.MinTextLength)
	assert.Equal(t, 300, cfg.Extraction.DPI)
	assert.Equal(t, EngineTesseract, cfg.Extraction.Engine)
	assert.Equal(t, "PDF_TEXT_OUTPUT", cfg.Output.Dir)
	assert.Equal(t, "local", cfg.Output.Storage)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
extraction:
  dpi: 150
  engine: gosseract
output:
  dir: /tmp/harvest
minio:
  bucketName: from-file
`), 0o644))

	t.Setenv("HARVESTER_DPI", "200")
	t.Setenv("MINIO_BUCKET_NAME", "from-env")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Extraction.DPI)
	assert.Equal(t, EngineGosseract, cfg.Extraction.Engine)
	assert.Equal(t, "/tmp/harvest", cfg.Output.Dir)
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.Extraction.MinTextLength)
	assert.Equal(t, "from-env", cfg.Minio.BucketName)
	assert.True(t, cfg.Minio.UseSSL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero threshold allowed", func(c *Config) { c.Extraction.MinTextLength = 0 }, ""},
		{"negative threshold", func(c *Config) { c.Extraction.MinTextLength = -1 }, "minTextLength"},
		{"zero dpi", func(c *Config) { c.Extraction.DPI = 0 }, "dpi"},
		{"zero workers", func(c *Config) { c.Extraction.MaxWorkers = 0 }, "maxWorkers"},
		{"unknown engine", func(c *Config) { c.Extraction.Engine = "easyocr" }, "unsupported OCR engine"},
		{"unknown storage", func(c *Config) { c.Output.Storage = "ftp" }, "unsupported storage type"},
		{"local without dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
		{"s3 without dir", func(c *Config) { c.Output.Storage = "s3"; c.Output.Dir = "" }, ""},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
