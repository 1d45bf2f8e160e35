package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, DefaultStorePath, cfg.StorePath)
	assert.Empty(t, cfg.SearchPaths)
}

func TestLoad_YML(t *testing.T) {
	dir := t.TempDir()
	content := `searchPaths:
  - lib
  - /usr/lib/python3.12
excludeDirs: [vendor, build]
workers: 4
logLevel: debug
store: sqlite
storePath: out/graph.db
packageMarkers: [site-packages]
runtimePrefix: pypy
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pygraph.yml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "lib"), "/usr/lib/python3.12"}, cfg.SearchPaths)
	assert.Equal(t, []string{"vendor", "build"}, cfg.ExcludeDirs)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "out/graph.db", cfg.StorePath)
	assert.Equal(t, []string{"site-packages"}, cfg.PackageMarkers)
	assert.Equal(t, "pypy", cfg.RuntimePrefix)
}

func TestLoad_YAMLExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pygraph.yaml"), []byte("store: kuzu\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, StoreKuzu, cfg.Store)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed":     "workers: [\n",
		"unknown store": "store: redis\n",
		"negative":      "workers: -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "pygraph.yml"), []byte(content), 0o644))
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
