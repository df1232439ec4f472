package sheetmatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheetmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "fused", cfg.Metric.Name)
	assert.Equal(t, "levenshtein", cfg.Aligner)
	assert.Equal(t, filepath.Join("data", "distances.json"), cfg.PairCachePath())
	assert.Equal(t, filepath.Join("data", "matches.json"), cfg.MatchCachePath())
	assert.Equal(t, filepath.Join("data", "glyphs"), cfg.GlyphDir())
	assert.Equal(t, filepath.Join("data", "badger"), cfg.BadgerDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SHEETMATCH_CACHE_DIR", "")
	t.Setenv("SHEETMATCH_CATALOG_DIR", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("SHEETMATCH_CACHE_DIR", "")
	t.Setenv("SHEETMATCH_CATALOG_DIR", "")

	path := writeConfig(t, `
cache:
  backend: badger
metric:
  name: fused
  weights:
    geometric: 0.5
  empty_penalty: 30
aligner: positional
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, "data", cfg.Cache.Dir, "unset keys keep defaults")
	assert.Equal(t, FusedWeights{Geometric: 0.5, Skeleton: 1}, cfg.Metric.Weights)
	assert.Equal(t, float64(30), cfg.Metric.EmptyPenalty)
	assert.Equal(t, "positional", cfg.Aligner)
	assert.Equal(t, "json", cfg.Log.Format)

	m, err := cfg.NewMetric()
	require.NoError(t, err)
	fused, ok := m.(*FusedMethod)
	require.True(t, ok)
	assert.Equal(t, cfg.Metric.Weights, fused.Weights)
	assert.Equal(t, float64(30), fused.EmptyPenalty)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SHEETMATCH_CACHE_DIR", "/var/cache/sheetmatch")
	t.Setenv("SHEETMATCH_CATALOG_DIR", "/srv/datasheets")

	cfg, err := LoadConfig(writeConfig(t, "cache:\n  dir: elsewhere\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/sheetmatch", cfg.Cache.Dir)
	assert.Equal(t, "/srv/datasheets", cfg.Catalog.Dir)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = LoadConfig(writeConfig(t, "metric: [unterminated"))
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadConfig(writeConfig(t, `
font_size: -1
cache:
  backend: sqlite
metric:
  name: cosine
aligner: dtw
log:
  level: loud
`))
	require.Error(t, err)
	for _, want := range []string{"font_size", "sqlite", "cosine", "dtw", "loud"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidateRequiresCacheDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Dir = ""
	assert.ErrorContains(t, cfg.Validate(), "cache.dir")

	cfg.Cache.Backend = "memory"
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.GlyphDir())
}
