// Package startup provides utilities for application startup tasks.
package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendermux/rendermux/internal/observability"
	"github.com/rendermux/rendermux/internal/transcode"
)

// DefaultCleanupAge is the default maximum age for orphaned session folders.
const DefaultCleanupAge = 6 * time.Hour

// CleanupOrphanedSessionDirs removes leftover transcode session folders that
// are older than maxAge. It looks for directories matching the pattern
// "webhls-*" in the specified base directory. Sessions that ended cleanly are
// deleted by the stop path; anything still matching after a restart is
// orphaned.
//
// Returns the number of directories removed and any error encountered.
func CleanupOrphanedSessionDirs(logger *slog.Logger, metrics *observability.Metrics, baseDir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		logger.Debug("base directory does not exist, skipping cleanup",
			"path", baseDir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", baseDir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if !strings.HasPrefix(entry.Name(), transcode.SessionDirPrefix+"-") {
			continue
		}

		dirPath := filepath.Join(baseDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get directory info",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent session directory",
				"path", dirPath,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			logger.Warn("failed to remove orphaned session directory",
				"path", dirPath,
				"error", err,
			)
			metrics.IncCleanupFailures()
			continue
		}

		logger.Info("removed orphaned session directory",
			"path", dirPath,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		metrics.IncFoldersCleaned()
		removed++
	}

	return removed, nil
}
