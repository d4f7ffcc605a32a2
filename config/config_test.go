package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/materia"
)

func TestLoad_Defaults_NoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "02/01/2006 15:04:05", cfg.Date.DisplayLayout)
	assert.Equal(t, 3, cfg.Factory.MaxDepth)
	assert.Equal(t, materia.UnknownStrip, cfg.UnknownPolicy())
}

func TestLoad_YAML_And_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "materia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
date:
  timezone: Europe/Paris
  layouts: ["2006-01-02"]
unknown: strict
factory:
  max_depth: 2
  seed: 42
`), 0o600))
	t.Setenv("MATERIA__FACTORY__COLLECTION_MAX", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "Europe/Paris", cfg.Location().String())
	assert.Equal(t, []string{"2006-01-02"}, cfg.Date.Layouts)
	assert.Equal(t, materia.UnknownStrict, cfg.UnknownPolicy())
	assert.Equal(t, 2, cfg.Factory.MaxDepth)
	assert.Equal(t, int64(42), cfg.Factory.Seed)
	assert.Equal(t, 5, cfg.Factory.CollectionMax)
	assert.Equal(t, 1, cfg.Factory.CollectionMin)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MATERIA__UNKNOWN", "sometimes")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate_CollectionBounds(t *testing.T) {
	c := Default()
	c.Factory.CollectionMin = 4
	c.Factory.CollectionMax = 2
	require.Error(t, c.Validate())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.True(t, Default().Logger().GetSink() != nil)
}
