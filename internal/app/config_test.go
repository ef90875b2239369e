package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "data", cfg.DataDir)
	require.Equal(t, "data/snapshots", cfg.SnapshotDir)
	require.Equal(t, "reports", cfg.ReportDir)
	require.Equal(t, 8760*time.Hour, cfg.SnapshotRetention)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("DEPOT_DATA_DIR", "/var/lib/depot")
	t.Setenv("DEPOT_SNAPSHOT_RETENTION", "720h")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/depot", cfg.DataDir)
	require.Equal(t, 720*time.Hour, cfg.SnapshotRetention)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigRejectsZeroRetention(t *testing.T) {
	t.Setenv("DEPOT_SNAPSHOT_RETENTION", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}
