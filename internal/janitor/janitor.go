// Package janitor deletes temp artifacts on every task exit path and sweeps
// the temp directory for orphans left behind by crashes. Deletion is always
// best-effort: a missing file is a no-op, a failed delete is logged and never
// escalated.
package janitor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Orphan sweep settings
const (
	sweepSchedule = "@hourly"
	orphanMaxAge  = 2 * time.Hour
)

// Janitor owns temp-file lifecycle for one temp directory.
type Janitor struct {
	dir  string
	log  *zap.Logger
	cron *cron.Cron
}

// New creates a janitor for dir, creating it if needed.
func New(dir string, log *zap.Logger) (*Janitor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Janitor{dir: dir, log: log}, nil
}

// Dir returns the temp directory artifacts are produced under.
func (j *Janitor) Dir() string {
	return j.dir
}

// Cleanup deletes each non-empty path. Deletions are independent: one failing
// never prevents the next, and calling twice or with absent files is a no-op.
func (j *Janitor) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(path); err != nil {
			j.log.Warn("failed to delete temp file", zap.String("path", path), zap.Error(err))
			continue
		}
		j.log.Debug("deleted temp file", zap.String("path", path))
	}
}

// Start schedules the hourly orphan sweep.
func (j *Janitor) Start() {
	j.cron = cron.New()
	j.cron.AddFunc(sweepSchedule, func() {
		n := j.Sweep(orphanMaxAge)
		if n > 0 {
			j.log.Info("swept orphaned temp files", zap.Int("count", n))
		}
	})
	j.cron.Start()
}

// Stop halts the sweep schedule.
func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// Sweep removes files in the temp dir older than maxAge and returns how many
// were deleted. With maxAge zero everything goes, which is what shutdown uses.
func (j *Janitor) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		j.log.Warn("failed to read temp dir", zap.Error(err))
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if maxAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed
}
