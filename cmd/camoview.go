package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/catalog"
	"github.com/ShoshinNikita/camoview/imagecache"
	"github.com/ShoshinNikita/camoview/images"
	"github.com/ShoshinNikita/camoview/installer"
	"github.com/ShoshinNikita/camoview/pkg/cache"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"github.com/ShoshinNikita/camoview/remote"
	"github.com/ShoshinNikita/camoview/tui"
	"github.com/ShoshinNikita/camoview/web"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

type App struct {
	cfg camoview.Config

	// stdout is used for the plain listing when the terminal UI is disabled.
	stdout      io.Writer
	interactive bool

	logFile *os.File

	imageCache *cache.DiskCache
	catalog    *catalog.Store
	images     *imagecache.Dispatcher[tui.Preview]
	installer  *installer.Installer

	ui     *terminalUI
	server *web.Server
}

func NewApp(cfg camoview.Config) *App {
	fd := os.Stdout.Fd()

	return &App{
		cfg:         cfg,
		stdout:      os.Stdout,
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (a *App) Prepare() (err error) {
	if err := os.MkdirAll(a.cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("couldn't create app data dir %q: %w", a.cfg.Dir, err)
	}

	// The terminal UI owns the screen, so logs go to a file.
	if a.interactive && !a.cfg.HasCommand() {
		a.logFile, err = os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("couldn't open log file: %w", err)
		}
		rlog.SetOutput(a.logFile)
	}

	// Image Cache
	a.imageCache, err = cache.NewDiskCache(a.cfg.CacheDir())
	if err != nil {
		return fmt.Errorf("couldn't prepare image cache: %w", err)
	}

	// Installer
	if a.cfg.Install.SkinsDir == "" {
		if dir, ok := installer.FindUserSkinsDir(); ok {
			rlog.Infof("skins dir is not set, use found %q", dir)
			a.cfg.Install.SkinsDir = dir
		}
	}
	a.installer = installer.NewInstaller(remote.NewClient(0, nil), a.cfg.Install)

	needCatalog := !a.cfg.HasCommand() || a.cfg.ExportTags != "" || a.cfg.ImportTags != ""
	if !needCatalog {
		return nil
	}

	// Catalog
	a.catalog, err = catalog.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("couldn't open catalog: %w", err)
	}
	if a.cfg.ImportPath != "" {
		if err := a.importRecords(a.cfg.ImportPath); err != nil {
			return err
		}
	}
	if a.cfg.HasCommand() {
		return nil
	}

	// Images
	keyFn, err := imagecache.NewKeyFunc(a.cfg.Images.KeyMode)
	if err != nil {
		return err
	}
	client := remote.NewClient(a.cfg.Images.FetchTimeout, nil)
	waker := tui.NewWaker()

	a.images = imagecache.NewDispatcher(
		a.imageCache, client, images.Decode, tui.NewPreviewRenderer(a.cfg.UI.PreviewWidth),
		imagecache.Options{
			Workers:      a.cfg.Images.WorkersCount,
			FetchTimeout: a.cfg.Images.FetchTimeout,
			KeyFunc:      keyFn,
			Wakeup:       waker.Wake,
		},
	)

	// UI
	if a.interactive {
		model, err := tui.NewModel(
			tui.Config{FrameInterval: a.cfg.UI.FrameInterval},
			a.catalog, a.images, a.installer, waker,
		)
		if err != nil {
			return fmt.Errorf("couldn't prepare ui: %w", err)
		}
		a.ui = &terminalUI{
			program: tea.NewProgram(model, tea.WithAltScreen()),
			waker:   waker,
		}
	}

	// Web Server
	if a.cfg.MetricsPort > 0 {
		a.server = web.NewServer(a.cfg, a.imagesStatus)
	}

	return nil
}

func (a *App) importRecords(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("couldn't open import file: %w", err)
	}
	defer f.Close()

	n, err := catalog.ImportYAML(context.Background(), a.catalog, f)
	if err != nil {
		return fmt.Errorf("couldn't import records from %q: %w", path, err)
	}
	rlog.Infof("%d record(s) were imported from %q", n, path)

	return nil
}

func (a *App) imagesStatus() web.ImagesStatus {
	return web.ImagesStatus{
		Loading:  a.images.Loading(),
		Queued:   a.images.QueueLen(),
		Resolved: a.images.Results().Len(),
	}
}

// RunCommands runs all commands set in the config. A failed command doesn't prevent
// the next ones from running.
func (a *App) RunCommands(ctx context.Context) error {
	var errs []error
	if a.cfg.ClearCache {
		errs = append(errs, a.ClearCache())
	}
	if a.cfg.ImportTags != "" {
		errs = append(errs, a.importTags(ctx, a.cfg.ImportTags))
	}
	if a.cfg.ExportTags != "" {
		errs = append(errs, a.exportTags(ctx, a.cfg.ExportTags))
	}
	if a.cfg.InstallFile != "" {
		errs = append(errs, a.installFile(a.cfg.InstallFile))
	}
	return errors.Join(errs...)
}

// ClearCache removes all cached images.
func (a *App) ClearCache() error {
	if err := a.imageCache.Clear(); err != nil {
		return fmt.Errorf("couldn't clear image cache: %w", err)
	}
	return nil
}

func (a *App) importTags(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("couldn't open tags file: %w", err)
	}
	defer f.Close()

	n, err := a.catalog.ImportTags(ctx, f)
	if err != nil {
		return fmt.Errorf("couldn't import tags from %q: %w", path, err)
	}
	rlog.Infof("%d custom tag(s) were imported from %q", n, path)

	return nil
}

func (a *App) exportTags(ctx context.Context, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("couldn't create tags file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("couldn't close tags file: %w", closeErr)
		}
	}()

	if err := a.catalog.ExportTags(ctx, f); err != nil {
		return fmt.Errorf("couldn't export tags to %q: %w", path, err)
	}
	rlog.Infof("tags were exported to %q", path)

	return nil
}

func (a *App) installFile(path string) error {
	dir, err := a.installer.InstallFile(path)
	if err != nil {
		return fmt.Errorf("couldn't install %q: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "%q was installed to %q\n", path, dir)
	return nil
}

// Start starts all components. onExit is called when the user closes the UI or
// the listing is printed.
func (a *App) Start(onError, onExit func()) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup

		if a.server != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()

				if err := a.server.Start(); err != nil {
					rlog.Errorf("web server error: %s", err)
					onError()
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer onExit()

			var err error
			if a.ui != nil {
				err = a.ui.Start()
			} else {
				err = listRecords(context.Background(), a.stdout, a.catalog)
			}
			if err != nil {
				rlog.Errorf("ui error: %s", err)
				onError()
			}
		}()

		wg.Wait()

		close(done)
	}()

	return done
}

// Shutdown shutdowns all components. It is safe to call this method even if Prepare has failed.
func (a *App) Shutdown(ctx context.Context) error {
	var failed int
	for _, v := range []struct {
		name string
		s    shutdowner
	}{
		{"web server", a.server},
		{"ui", a.ui},
		{"image dispatcher", a.images},
		{"catalog", a.catalog},
	} {
		err := safeShutdown(ctx, v.s)
		if err != nil {
			failed++
			rlog.Errorf("couldn't gracefully shutdown %s: %s", v.name, err)
		}
	}

	if a.logFile != nil {
		rlog.SetOutput(os.Stderr)
		if err := a.logFile.Close(); err != nil {
			failed++
			rlog.Errorf("couldn't close log file: %s", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("couldn't gracefully shutdown %d component(s), see logs for more info", failed)
	}
	return nil
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// safeShutdown calls Shutdown method only on initialized components.
func safeShutdown(ctx context.Context, s shutdowner) error {
	v := reflect.ValueOf(s)
	if !v.IsValid() || v.IsNil() {
		return nil
	}
	return s.Shutdown(ctx)
}

type terminalUI struct {
	program *tea.Program
	waker   *tui.Waker
}

func (ui *terminalUI) Start() error {
	_, err := ui.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (ui *terminalUI) Shutdown(context.Context) error {
	ui.waker.Close()
	ui.program.Kill()
	return nil
}

// listRecords prints all records. It is used when stdout is not a terminal.
func listRecords(ctx context.Context, w io.Writer, c camoview.Catalog) error {
	records, err := c.Search(ctx, "", nil)
	if err != nil {
		return err
	}

	for i, rec := range records {
		line := fmt.Sprintf("%d. %s", i+1, rec.VehicleName)
		if rec.Nickname != "" {
			line += " by " + rec.Nickname
		}
		if len(rec.Hashtags) > 0 {
			line += " [#" + strings.Join(rec.Hashtags, " #") + "]"
		}
		line += fmt.Sprintf(", images: %d", len(rec.ImageURLs))
		if rec.ArchiveURL != "" {
			line += ", archive: " + rec.ArchiveURL
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("couldn't write record: %w", err)
		}
	}
	if len(records) == 0 {
		if _, err := fmt.Fprintln(w, "No records found"); err != nil {
			return fmt.Errorf("couldn't write listing: %w", err)
		}
	}
	return nil
}
