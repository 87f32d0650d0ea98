package installer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/metrics"
	"github.com/ShoshinNikita/camoview/pkg/misc"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
)

var (
	ErrNoSkinsDir      = errors.New("skins dir is not set")
	ErrNoArchive       = errors.New("record has no archive")
	ErrUnsafePath      = errors.New("archive entry points outside of the target dir")
	ErrArchiveTooLarge = errors.New("archive is too large")
)

// Opener opens a remote file.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Installer downloads camouflage archives and extracts them into the skins dir.
type Installer struct {
	opener         Opener
	skinsDir       string
	pathTemplate   string
	maxArchiveSize int64
}

func NewInstaller(opener Opener, cfg camoview.InstallConfig) *Installer {
	return &Installer{
		opener:         opener,
		skinsDir:       cfg.SkinsDir,
		pathTemplate:   cfg.PathTemplate,
		maxArchiveSize: cfg.MaxArchiveSize.Bytes(),
	}
}

// TargetDir returns the dir the record will be extracted to.
//
// Supported placeholders:
//   - %USERSKINS - skins dir
//   - %NICKNAME - author of the camouflage
//   - %SKIN_NAME, %VEHICLE - vehicle name
//
// A relative result is resolved against the skins dir.
func (inst *Installer) TargetDir(rec camoview.Record) (string, error) {
	if inst.skinsDir == "" {
		return "", ErrNoSkinsDir
	}

	vehicle := sanitizePathElement(rec.VehicleName)
	if inst.pathTemplate == "" {
		return filepath.Join(inst.skinsDir, vehicle), nil
	}

	path := strings.NewReplacer(
		"%USERSKINS", inst.skinsDir,
		"%NICKNAME", sanitizePathElement(rec.Nickname),
		"%SKIN_NAME", vehicle,
		"%VEHICLE", vehicle,
	).Replace(inst.pathTemplate)

	path = filepath.Clean(filepath.FromSlash(path))
	if !filepath.IsAbs(path) {
		path = filepath.Join(inst.skinsDir, path)
	}
	return path, nil
}

// Install downloads the archive of the record and extracts it. It returns the target dir.
func (inst *Installer) Install(ctx context.Context, rec camoview.Record) (dir string, err error) {
	defer func() {
		if err != nil {
			metrics.InstallErrors.Inc()
		} else {
			metrics.Installs.Inc()
		}
	}()

	if rec.ArchiveURL == "" {
		return "", ErrNoArchive
	}
	dir, err = inst.TargetDir(rec)
	if err != nil {
		return "", err
	}

	now := time.Now()

	archivePath, size, err := inst.download(ctx, rec.ArchiveURL)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(archivePath); err != nil {
			rlog.Errorf("couldn't remove temp archive file: %s", err)
		}
	}()

	files, err := extract(archivePath, dir)
	if err != nil {
		return "", fmt.Errorf("couldn't extract archive: %w", err)
	}

	rlog.Infof(
		"%q was installed to %q in %s, archive size: %s, files: %d",
		rec.VehicleName, dir, time.Since(now), misc.FormatFileSize(size), files,
	)

	return dir, nil
}

// InstallFile extracts a local archive into <skins dir>/<archive name>. It returns the
// target dir.
func (inst *Installer) InstallFile(archivePath string) (dir string, err error) {
	defer func() {
		if err != nil {
			metrics.InstallErrors.Inc()
		} else {
			metrics.Installs.Inc()
		}
	}()

	if inst.skinsDir == "" {
		return "", ErrNoSkinsDir
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("couldn't open archive: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%q is not a file", archivePath)
	}

	name := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	dir = filepath.Join(inst.skinsDir, sanitizePathElement(name))

	files, err := extract(archivePath, dir)
	if err != nil {
		return "", fmt.Errorf("couldn't extract archive: %w", err)
	}

	rlog.Infof(
		"%q was installed to %q, archive size: %s, files: %d",
		archivePath, dir, misc.FormatFileSize(info.Size()), files,
	)

	return dir, nil
}

func (inst *Installer) download(ctx context.Context, url string) (path string, size int64, err error) {
	body, err := inst.opener.Open(ctx, url)
	if err != nil {
		return "", 0, fmt.Errorf("couldn't download archive: %w", err)
	}
	defer body.Close()

	tempFile, err := os.CreateTemp("", "camoview-*.zip")
	if err != nil {
		return "", 0, fmt.Errorf("couldn't create temp archive file: %w", err)
	}
	defer func() {
		if closeErr := tempFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("couldn't close temp archive file: %w", closeErr)
		}
		if err != nil {
			os.Remove(tempFile.Name())
		}
	}()

	size, err = io.Copy(tempFile, io.LimitReader(body, inst.maxArchiveSize+1))
	if err != nil {
		return "", 0, fmt.Errorf("couldn't download archive: %w", err)
	}
	if size > inst.maxArchiveSize {
		return "", 0, fmt.Errorf("%w: max size is %s", ErrArchiveTooLarge, misc.FormatFileSize(inst.maxArchiveSize))
	}

	return tempFile.Name(), size, nil
}

// extract unpacks all regular files and dirs of the archive into dir. It returns the
// number of extracted files.
func extract(archivePath, dir string) (int, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, zip.ErrInsecurePath) {
			zr.Close()
			return 0, ErrUnsafePath
		}
		return 0, fmt.Errorf("couldn't open archive: %w", err)
	}
	defer zr.Close()

	// Check all entries before writing anything.
	for _, f := range zr.File {
		if !isSafePath(f.Name) {
			return 0, fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("couldn't create target dir: %w", err)
	}

	var count int
	for _, f := range zr.File {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))

		switch mode := f.Mode(); {
		case mode.IsDir():
			if err := os.MkdirAll(path, 0o755); err != nil {
				return count, fmt.Errorf("couldn't create dir %q: %w", f.Name, err)
			}

		case mode.IsRegular():
			if err := extractFile(f, path); err != nil {
				return count, err
			}
			count++

		default:
			rlog.Warnf("skip archive entry %q with unsupported mode %s", f.Name, mode)
		}
	}
	return count, nil
}

func extractFile(f *zip.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("couldn't create dir for %q: %w", f.Name, err)
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("couldn't open %q: %w", f.Name, err)
	}
	defer rc.Close()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("couldn't create file for %q: %w", f.Name, err)
	}

	_, err = io.Copy(file, rc) //nolint:gosec
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("couldn't write %q: %w", f.Name, err)
	}
	return nil
}

func isSafePath(name string) bool {
	name = strings.TrimSuffix(name, "/")
	if name == "" || strings.Contains(name, `\`) {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(name))
}

// sanitizePathElement makes s usable as a single path element.
func sanitizePathElement(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))

	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
