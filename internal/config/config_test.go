package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
archive:
  max_size: 1048576
storage:
  path: /var/lib/saves
cache:
  backend: redis
  ttl_seconds: 5
net:
  join_addr: ":9000"
log:
  console_level: debug
game:
  map_file: maps/map01.yaml
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1048576, cfg.Archive.GetMaxSize())
	assert.Equal(t, 64<<10, cfg.Archive.GetInitialSize(), "не заданное значение берётся из дефолта")
	assert.Equal(t, "/var/lib/saves", cfg.Storage.GetPath())
	assert.Equal(t, "redis", cfg.Cache.GetBackend())
	assert.Equal(t, 5*time.Second, cfg.Cache.GetTTL())
	assert.Equal(t, ":9000", cfg.Net.GetJoinAddr())
	assert.Equal(t, "debug", cfg.Log.ConsoleLevel)
	assert.Equal(t, "maps/map01.yaml", cfg.Game.MapFile)
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("SNAPSHOT_DATA_DIR", "/tmp/env-saves")
	t.Setenv("SNAPSHOT_METRICS_PORT", "9100")
	t.Setenv("SNAPSHOT_KCP_MTU", "not-a-number")

	var cfg Config
	assert.Equal(t, "/tmp/env-saves", cfg.Storage.GetPath())
	assert.Equal(t, 9100, cfg.Metrics.GetPort())
	assert.Equal(t, 1400, cfg.Net.GetMTU(), "некорректное значение env игнорируется")
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("SNAPSHOT_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 4, (&ArchiveConfig{CompressionLevel: 9}).GetCompressionLevel())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
