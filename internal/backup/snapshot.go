package backup

// snapshot.go provides scheduled whole-instance snapshots.
//
// The snapshotter is a long-running background job: every interval it writes
// a full export to a timestamped file and prunes the oldest files beyond the
// retention count. It logs progress and errors but never fails the
// application when an individual snapshot fails.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	snapshotPrefix = "quill-"
	snapshotSuffix = ".bak"
)

// SnapshotConfig holds settings for the snapshot scheduler.
type SnapshotConfig struct {
	Dir      string        // Directory snapshots are written to
	Interval time.Duration // How often to snapshot
	Keep     int           // How many snapshot files to retain
}

// Snapshotter periodically exports the whole instance to disk.
type Snapshotter struct {
	db  DBTX
	cfg SnapshotConfig
	log *slog.Logger
}

// NewSnapshotter creates a snapshotter over a store handle.
func NewSnapshotter(db DBTX, cfg SnapshotConfig) *Snapshotter {
	return &Snapshotter{db: db, cfg: cfg, log: slog.Default()}
}

// Start runs the snapshot loop: one snapshot immediately, then one per
// interval. It returns when the context is cancelled.
func (s *Snapshotter) Start(ctx context.Context) {
	s.log.Info("snapshot scheduler started",
		"dir", s.cfg.Dir,
		"interval", s.cfg.Interval.String(),
		"keep", s.cfg.Keep,
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("snapshot scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs one snapshot + prune cycle.
func (s *Snapshotter) runOnce(ctx context.Context) {
	start := time.Now()

	path, err := s.writeSnapshot(ctx)
	if err != nil {
		s.log.Error("snapshot failed", "error", err)
		return
	}
	s.log.Info("snapshot written",
		"path", path,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := s.prune(); err != nil {
		s.log.Error("snapshot prune failed", "error", err)
	}
}

// writeSnapshot exports the whole instance to a timestamped file. A snapshot
// that fails mid-export is removed rather than left truncated.
func (s *Snapshotter) writeSnapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := snapshotPrefix + time.Now().UTC().Format("20060102-150405") + snapshotSuffix
	path := filepath.Join(s.cfg.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}

	w := NewWriter(s.db, f)
	err = w.WriteManifest(ModeFull)
	if err == nil {
		err = w.ExportAll(ctx)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// prune deletes the oldest snapshots beyond the retention count. Timestamped
// names sort lexicographically, so name order is age order.
func (s *Snapshotter) prune() error {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotSuffix) {
			names = append(names, name)
		}
	}
	if len(names) <= s.cfg.Keep {
		return nil
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-s.cfg.Keep] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
			return err
		}
		s.log.Debug("snapshot pruned", "name", name)
	}
	return nil
}
