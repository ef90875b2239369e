package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Collection file names inside the data directory.
const (
	stockFile     = "stock.json"
	entriesFile   = "entries.json"
	exitsFile     = "exits.json"
	disposalsFile = "disposals.json"
	deletionsFile = "deletions.json"
)

const snapshotPrefix = "backup_"

// Repository persists the ledger state as flat JSON collections on the local
// filesystem, with a timestamped snapshot of the whole state taken before
// every mutating save.
type Repository struct {
	dataDir     string
	snapshotDir string
	retention   time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// RepositoryConfig groups repository settings.
type RepositoryConfig struct {
	DataDir     string
	SnapshotDir string
	// Retention bounds snapshot age for Sweep. Zero means keep forever.
	Retention time.Duration
}

// NewRepository constructs Repository.
func NewRepository(cfg RepositoryConfig, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	snapshotDir := cfg.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = filepath.Join(cfg.DataDir, "snapshots")
	}
	return &Repository{
		dataDir:     cfg.DataDir,
		snapshotDir: snapshotDir,
		retention:   cfg.Retention,
		logger:      logger,
		now:         time.Now,
	}
}

// Load reads all collections. A missing file is an empty collection, never an
// error.
func (r *Repository) Load() (State, error) {
	var state State
	if err := r.readCollection(stockFile, &state.Stock); err != nil {
		return State{}, err
	}
	if err := r.readCollection(entriesFile, &state.Entries); err != nil {
		return State{}, err
	}
	if err := r.readCollection(exitsFile, &state.Exits); err != nil {
		return State{}, err
	}
	if err := r.readCollection(disposalsFile, &state.Disposals); err != nil {
		return State{}, err
	}
	if err := r.readCollection(deletionsFile, &state.Deletions); err != nil {
		return State{}, err
	}
	return state, nil
}

// Save snapshots the previously persisted state, then writes all collections.
// On a write failure it restores the most recent snapshot so the on-disk state
// stays consistent, and surfaces the original failure.
func (r *Repository) Save(state State) error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if r.hasPersistedState() {
		if _, err := r.snapshotCurrent(); err != nil {
			return fmt.Errorf("snapshot before save: %w", err)
		}
	}
	if err := r.writeAll(state); err != nil {
		if restoreErr := r.RestoreLatest(); restoreErr != nil {
			r.logger.Error("restore after failed save", slog.Any("error", restoreErr))
		}
		return err
	}
	return nil
}

func (r *Repository) writeAll(state State) error {
	if err := r.writeCollection(stockFile, state.Stock); err != nil {
		return err
	}
	if err := r.writeCollection(entriesFile, state.Entries); err != nil {
		return err
	}
	if err := r.writeCollection(exitsFile, state.Exits); err != nil {
		return err
	}
	if err := r.writeCollection(disposalsFile, state.Disposals); err != nil {
		return err
	}
	return r.writeCollection(deletionsFile, state.Deletions)
}

func (r *Repository) hasPersistedState() bool {
	for _, name := range []string{stockFile, entriesFile, exitsFile, disposalsFile, deletionsFile} {
		if _, err := os.Stat(filepath.Join(r.dataDir, name)); err == nil {
			return true
		}
	}
	return false
}

// snapshotCurrent writes the on-disk state as one combined, timestamp-named
// document in the snapshot directory.
func (r *Repository) snapshotCurrent() (string, error) {
	current, err := r.Load()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.snapshotDir, 0o755); err != nil {
		return "", err
	}
	name := snapshotPrefix + r.now().Format("20060102_150405") + ".json"
	path := filepath.Join(r.snapshotDir, name)
	data, err := json.MarshalIndent(current, "", "    ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// RestoreLatest rewrites the collection files from the most recent snapshot.
func (r *Repository) RestoreLatest() error {
	path, err := r.latestSnapshot()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	return r.writeAll(state)
}

func (r *Repository) latestSnapshot() (string, error) {
	names, err := r.snapshotNames()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no snapshot available in %s", r.snapshotDir)
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	return filepath.Join(r.snapshotDir, names[len(names)-1]), nil
}

func (r *Repository) snapshotNames() ([]string, error) {
	entries, err := os.ReadDir(r.snapshotDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	return names, nil
}

// Sweep removes snapshots older than the configured retention. Failures are
// reported but never fatal; the count of removed snapshots is returned.
func (r *Repository) Sweep() int {
	if r.retention <= 0 {
		return 0
	}
	names, err := r.snapshotNames()
	if err != nil {
		r.logger.Warn("snapshot sweep", slog.Any("error", err))
		return 0
	}
	cutoff := r.now().Add(-r.retention)
	removed := 0
	for _, name := range names {
		path := filepath.Join(r.snapshotDir, name)
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Warn("snapshot sweep stat", slog.String("file", name), slog.Any("error", err))
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				r.logger.Warn("snapshot sweep remove", slog.String("file", name), slog.Any("error", err))
				continue
			}
			removed++
		}
	}
	return removed
}

// WriteBackup writes the given state as one combined document for manual,
// operator-initiated backups, and returns its path.
func (r *Repository) WriteBackup(state State) (string, error) {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.dataDir, "depot_backup.json")
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Repository) readCollection(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(r.dataDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (r *Repository) writeCollection(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(r.dataDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
