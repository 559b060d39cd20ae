package upload

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// tempPrefix marks in-progress uploads. Files with it are left behind only
// when the process dies between create and rename.
const tempPrefix = ".upload-"

// StartTempCleaner removes abandoned upload temp files older than retention
// from dir every interval, until ctx is done.
func StartTempCleaner(
	ctx context.Context,
	dir string,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := SweepTemp(dir, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean abandoned uploads", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned abandoned uploads", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// SweepTemp deletes temp upload files modified before cutoff in dir and its
// per-card subdirectories. It returns how many files were removed.
func SweepTemp(dir string, cutoff time.Time) (int, error) {
	dir = filepath.Clean(dir)
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != dir && filepath.Dir(path) != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
