package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunLogPattern matches per-run daemon log files, both in the log directory
// and in its debug/ subdirectory.
const RunLogPattern = "polyglot-*.log"

// PruneRunLogs deletes run logs under logDir older than retentionDays and
// returns how many were removed. The active run log (current) and the
// polyglot.log pointer are always kept. retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, logDir string, retentionDays int, current string) int {
	if retentionDays <= 0 || logDir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := map[string]struct{}{}
	for _, path := range []string{current, filepath.Join(logDir, "polyglot.log")} {
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			keep[abs] = struct{}{}
		}
	}

	removed := 0
	for _, dir := range []string{logDir, filepath.Join(logDir, "debug")} {
		matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
		if err != nil {
			continue
		}
		for _, path := range matches {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if _, ok := keep[path]; ok {
				continue
			}
			info, err := os.Lstat(path)
			if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "run log prune failed; file remains", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check file permissions and paths.log_dir ownership"),
					String(FieldImpact, "old run log stays on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("run log pruned",
					String("path", path),
					String(FieldEventType, "log_pruned"),
				)
			}
		}
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_retention"),
		)
	}
	return removed
}
