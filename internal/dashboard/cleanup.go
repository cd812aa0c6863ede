package dashboard

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
)

// CleanupResult summarizes one cleanup pass.
type CleanupResult struct {
	Deleted int
	Bytes   uint64
	Cutoff  time.Time
}

// datedPagePattern matches the dated chart pages written with prefix.
func datedPagePattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_\d_[a-z]+_(\d{4}-\d{2}-\d{2})\.html$`)
}

// Cleanup deletes dated chart pages in dir whose date is strictly before
// the calendar day of now minus keepDays. Files with an unparseable date
// are skipped with a warning. The host page is never touched.
func Cleanup(logger *slog.Logger, dir, prefix string, keepDays int, now time.Time) (CleanupResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	res := CleanupResult{Cutoff: today.AddDate(0, 0, -keepDays)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("dashboard: cleanup: read %s: %w", dir, err)
	}

	logger.Info("dashboard cleanup started",
		"dir", dir,
		"keep_days", keepDays,
		"cutoff", res.Cutoff.Format(fileDateLayout),
	)

	pattern := datedPagePattern(prefix)
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		fileDate, err := time.Parse(fileDateLayout, m[1])
		if err != nil {
			logger.Warn("dashboard cleanup: unparseable date in file name", "file", e.Name())
			continue
		}
		if !fileDate.Before(res.Cutoff) {
			continue
		}

		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}

		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, fmt.Errorf("dashboard: cleanup: remove %s: %w", e.Name(), err))
			continue
		}
		res.Deleted++
		if size > 0 {
			res.Bytes += uint64(size)
		}
		logger.Debug("dashboard cleanup: removed", "file", e.Name())
	}

	logger.Info("dashboard cleanup finished",
		"deleted", res.Deleted,
		"freed", humanize.Bytes(res.Bytes),
	)

	return res, errors.Join(errs...)
}
