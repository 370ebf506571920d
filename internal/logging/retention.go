package logging

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	runLogPrefix = "rommate-"
	runLogSuffix = ".log"
	runLogDate   = "20060102"
)

// RunLogPath returns the log file that receives records written on ts's UTC date.
func RunLogPath(dir string, ts time.Time) string {
	return filepath.Join(dir, runLogPrefix+ts.UTC().Format(runLogDate)+runLogSuffix)
}

// runLogDay parses the date encoded in a daily log file name.
func runLogDay(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, runLogPrefix) || !strings.HasSuffix(name, runLogSuffix) {
		return time.Time{}, false
	}
	day, err := time.Parse(runLogDate, strings.TrimSuffix(strings.TrimPrefix(name, runLogPrefix), runLogSuffix))
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// PruneRunLogs deletes daily log files in dir older than retentionDays and
// returns how many were removed. Age comes from the date in the file name;
// a rommate-*.log file without a parsable date falls back to its mtime.
// Other files are never touched. Zero days disables pruning.
func PruneRunLogs(fsys afero.Fs, logger *slog.Logger, dir string, retentionDays int) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, runLogPrefix) || !strings.HasSuffix(name, runLogSuffix) {
			continue
		}
		stamp, ok := runLogDay(name)
		if !ok {
			stamp = entry.ModTime()
		}
		if !stamp.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := fsys.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed", "log_retention_failed",
				String(FieldPath, path),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir"),
				String(FieldImpact, "old log file remains on disk"))
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String(FieldPath, path))
		}
	}
	return removed
}
