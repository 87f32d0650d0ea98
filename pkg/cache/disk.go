package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/metrics"
	"github.com/ShoshinNikita/camoview/pkg/misc"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
)

var ErrInvalidKey = errors.New("invalid cache key")

// tempDirName is a subdir for files being written. [DiskCache.Clear] skips dirs, so
// it never removes an entry before it is renamed.
const tempDirName = ".tmp"

// DiskCache stores every entry as a separate file directly under the cache dir.
// It has no size limit.
type DiskCache struct {
	absDir string

	removeFile func(path string) error
}

var _ camoview.ByteCache = (*DiskCache)(nil)

func NewDiskCache(dir string) (*DiskCache, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("couldn't get absolute path: %w", err)
	}
	return &DiskCache{
		absDir:     absDir,
		removeFile: os.Remove,
	}, nil
}

// Dir returns the absolute path of the cache dir.
func (c *DiskCache) Dir() string {
	return c.absDir
}

// Lookup returns the content of the cache file. Errors other than [fs.ErrNotExist] are
// counted and logged, but the caller sees them as a regular miss.
func (c *DiskCache) Lookup(key camoview.ResourceKey) ([]byte, bool) {
	path, err := c.generateFilepath(key)
	if err != nil {
		metrics.CacheMisses.Inc()
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.CacheMisses.Inc()
			return nil, false
		}

		metrics.CacheErrors.Inc()
		rlog.Debugf("couldn't read cache file for %q: %s", key, err)
		return nil, false
	}

	metrics.CacheHits.Inc()
	return data, true
}

// Store writes data to a temp file and renames it, so concurrent readers never see
// a partially written entry.
func (c *DiskCache) Store(key camoview.ResourceKey, data []byte) (err error) {
	path, err := c.generateFilepath(key)
	if err != nil {
		return err
	}

	tempDir := filepath.Join(c.absDir, tempDirName)
	if err := os.MkdirAll(tempDir, 0o700); err != nil {
		return fmt.Errorf("couldn't create dir %q: %w", tempDir, err)
	}

	f, err := os.CreateTemp(tempDir, "entry-*")
	if err != nil {
		return fmt.Errorf("couldn't create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("couldn't write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("couldn't close file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("couldn't rename temp file: %w", err)
	}
	return nil
}

// Clear removes all regular files from the cache dir. It doesn't stop on errors and
// returns all of them joined.
func (c *DiskCache) Clear() error {
	entries, err := os.ReadDir(c.absDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("couldn't read cache dir: %w", err)
	}

	var (
		removedFiles int
		cleanedSpace int64
		errs         []error
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}

		path := filepath.Join(c.absDir, entry.Name())
		if err := c.removeFile(path); err != nil {
			errs = append(errs, fmt.Errorf("couldn't remove file %q from cache: %w", path, err))
			continue
		}
		removedFiles++
		cleanedSpace += size
	}

	rlog.Infof(
		"%d files have been removed from cache for a total of %s freed, got %d errors",
		removedFiles, misc.FormatFileSize(cleanedSpace), len(errs),
	)

	return errors.Join(errs...)
}

// generateFilepath returns '<dir>/<key>'. Keys must be plain filenames.
func (c *DiskCache) generateFilepath(key camoview.ResourceKey) (string, error) {
	name := string(key)
	if name == "" || name == "." || name == ".." || name == tempDirName || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return filepath.Join(c.absDir, name), nil
}
