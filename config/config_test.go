package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/madhatter5501/catalyst/config"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := config.Default()
	cfg.Mode = domain.ModeFortress
	cfg.MaxRejections = 5
	cfg.MaxConcurrentFeatures = 8
	cfg.SearxngURL = "http://searxng.local"

	require.NoError(t, config.Save(path, cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindConfiguration))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.Default()
	require.NoError(t, config.Save(path, cfg))

	reloaded := make(chan config.Config, 1)
	watcher, err := config.Watch(path, func(c config.Config) { reloaded <- c })
	require.NoError(t, err)
	defer watcher.Close()

	updated := cfg
	updated.MaxRejections = 9
	require.NoError(t, config.Save(path, updated))

	select {
	case got := <-reloaded:
		require.Equal(t, 9, got.MaxRejections)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a reload after the config file was rewritten")
	}
}

