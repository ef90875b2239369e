package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	DataDir     string `envconfig:"DATA_DIR" default:"data"`
	SnapshotDir string `envconfig:"SNAPSHOT_DIR" default:"data/snapshots"`
	ReportDir   string `envconfig:"REPORT_DIR" default:"reports"`

	// SnapshotRetention bounds how long pre-save snapshots are kept.
	SnapshotRetention time.Duration `envconfig:"SNAPSHOT_RETENTION" default:"8760h"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("depot", &cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data directory must be provided")
	}
	if cfg.SnapshotRetention <= 0 {
		return nil, errors.New("snapshot retention must be positive")
	}
	return &cfg, nil
}
