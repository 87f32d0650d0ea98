package camoview

import (
	"encoding"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ShoshinNikita/camoview/pkg/rlog"
)

type Config struct {
	BuildInfo BuildInfo

	Dir        string
	DBPath     string
	ImportPath string

	Images  ImagesConfig
	UI      UIConfig
	Install InstallConfig

	MetricsPort int

	// Debug options

	LogLevel rlog.Level
	LogFile  string

	// Commands

	ClearCache  bool
	ExportTags  string
	ImportTags  string
	InstallFile string
}

type BuildInfo struct {
	ShortGitHash string
	CommitTime   string
}

type ImagesConfig struct {
	WorkersCount int
	FetchTimeout time.Duration
	KeyMode      CacheKeyMode
}

type UIConfig struct {
	FrameInterval time.Duration
	PreviewWidth  int
}

type InstallConfig struct {
	SkinsDir       string
	PathTemplate   string
	MaxArchiveSize MiB
}

// HasCommand reports whether the app must run commands and exit instead of showing records.
func (cfg Config) HasCommand() bool {
	return cfg.ClearCache || cfg.ExportTags != "" || cfg.ImportTags != "" || cfg.InstallFile != ""
}

// CacheDir returns the directory for cached images.
func (cfg Config) CacheDir() string {
	return filepath.Join(cfg.Dir, "images")
}

type CacheKeyMode string

const (
	// CacheKeyFilename uses the last path element of an image url. Different images with the
	// same filename share a cache entry.
	CacheKeyFilename CacheKeyMode = "filename"
	// CacheKeyHash uses a hash of the full url.
	CacheKeyHash CacheKeyMode = "hash"
)

func (m CacheKeyMode) MarshalText() (text []byte, err error) {
	return []byte(m), nil
}

func (m *CacheKeyMode) UnmarshalText(text []byte) error {
	*m = CacheKeyMode(text)

	return checkEnum(*m, CacheKeyFilename, CacheKeyHash)
}

func checkEnum[T comparable](v T, validValues ...T) error {
	if !slices.Contains(validValues, v) {
		return fmt.Errorf("valid values: %v", validValues)
	}
	return nil
}

type MiB int

func (mb MiB) Bytes() int64 {
	return int64(mb) << 20
}

func (mb MiB) String() string {
	text, _ := mb.MarshalText()
	return string(text)
}

func (mb MiB) MarshalText() (text []byte, err error) {
	if mb >= 1024 && mb%1024 == 0 {
		return []byte(strconv.Itoa(int(mb/1024)) + "Gi"), nil
	}
	return []byte(strconv.Itoa(int(mb)) + "Mi"), nil
}

func (mb *MiB) UnmarshalText(data []byte) error {
	text := string(data)

	mul := 1
	switch {
	case strings.HasSuffix(text, "Mi"):
	case strings.HasSuffix(text, "Gi"):
		mul = 1024
	default:
		return fmt.Errorf("valid suffixes: Mi, Gi")
	}
	n, err := strconv.Atoi(text[:len(text)-2])
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}

	*mb = MiB(n * mul)
	return nil
}

type flagParams struct {
	// p is a pointer to a value.
	p            any
	defaultValue any
	desc         string
}

func (cfg *Config) getFlagParams() map[string]flagParams {
	return map[string]flagParams{
		"dir": {
			p: &cfg.Dir, defaultValue: "./var", desc: "Directory for app data (image cache, catalog, logs)",
		},
		"db": {
			p: &cfg.DBPath, defaultValue: "", desc: "Path to the catalog database, default is <dir>/catalog.db",
		},
		"import": {
			p: &cfg.ImportPath, defaultValue: "", desc: "YAML file with records to import into the catalog on start",
		},
		//
		"fetch-workers": {
			p: &cfg.Images.WorkersCount, defaultValue: runtime.NumCPU(), desc: "Number of workers for image loading",
		},
		"fetch-timeout": {
			p: &cfg.Images.FetchTimeout, defaultValue: time.Minute, desc: "Timeout for loading a single image",
		},
		"cache-key-mode": {
			p: &cfg.Images.KeyMode, defaultValue: CacheKeyFilename, desc: "" +
				"Available cache key modes:\n" +
				"  - filename: cache images by the last element of their url\n" +
				"  - hash: cache images by a hash of the full url, images with\n" +
				"          the same filename don't overwrite each other\n",
		},
		//
		"frame-interval": {
			p: &cfg.UI.FrameInterval, defaultValue: 50 * time.Millisecond, desc: "Interval between UI frames",
		},
		"preview-width": {
			p: &cfg.UI.PreviewWidth, defaultValue: 40, desc: "Width of image previews, in terminal cells",
		},
		//
		"skins-dir": {
			p: &cfg.Install.SkinsDir, defaultValue: "", desc: "" +
				"Directory to install skins to (UserSkins). If empty, UserSkins dir\n" +
				"of a found game installation is used",
		},
		"install-path-template": {
			p: &cfg.Install.PathTemplate, defaultValue: "%USERSKINS/%NICKNAME/%SKIN_NAME - %VEHICLE", desc: "" +
				"Template of an install directory, empty value means <skins-dir>/<vehicle>.\n" +
				"Supported placeholders: %USERSKINS, %NICKNAME, %SKIN_NAME, %VEHICLE",
		},
		"max-archive-size": {
			p: &cfg.Install.MaxArchiveSize, defaultValue: MiB(512), desc: "Max size of a downloaded archive",
		},
		//
		"metrics-port": {
			p: &cfg.MetricsPort, defaultValue: 0, desc: "Port to serve /debug/metrics on, 0 disables the server",
		},
		"log-level": {
			p: &cfg.LogLevel, defaultValue: rlog.LevelInfo, desc: "Set the minimal log level. One of: debug, info, warn, error",
		},
		"log-file": {
			p: &cfg.LogFile, defaultValue: "", desc: "Log file, default is <dir>/camoview.log",
		},
		"clear-cache": {
			p: &cfg.ClearCache, defaultValue: false, desc: "Remove all cached images and exit",
		},
		"export-tags": {
			p: &cfg.ExportTags, defaultValue: "", desc: "Export catalog and custom tags to a YAML file and exit",
		},
		"import-tags": {
			p: &cfg.ImportTags, defaultValue: "", desc: "Replace custom tags with the ones from an exported YAML file and exit",
		},
		"install-file": {
			p: &cfg.InstallFile, defaultValue: "", desc: "Install a skin from a local zip archive and exit",
		},
	}
}

func ParseConfig() (Config, error) {
	return parseConfig(flag.CommandLine, os.Args[1:])
}

func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		BuildInfo: readBuildInfo(),
	}

	var printVersion bool
	fs.BoolVar(&printVersion, "version", false, "Print version and exit")

	flags := cfg.getFlagParams()
	for name, params := range flags {
		switch p := params.p.(type) {
		case *bool:
			fs.BoolVar(p, name, params.defaultValue.(bool), params.desc)
		case *int:
			fs.IntVar(p, name, params.defaultValue.(int), params.desc)
		case *int64:
			fs.Int64Var(p, name, params.defaultValue.(int64), params.desc)
		case *string:
			fs.StringVar(p, name, params.defaultValue.(string), params.desc)
		case *time.Duration:
			fs.DurationVar(p, name, params.defaultValue.(time.Duration), params.desc)
		case encoding.TextUnmarshaler:
			fs.TextVar(p, name, params.defaultValue.(encoding.TextMarshaler), params.desc)
		default:
			return Config{}, fmt.Errorf("flag %q has unsupported type: %T", name, p)
		}
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if printVersion {
		cfg.BuildInfo.Print()
		os.Exit(0)
	}

	if cfg.Dir == "" {
		return cfg, errors.New("dir can't be empty")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.Dir, "catalog.db")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.Dir, "camoview.log")
	}
	if cfg.Images.WorkersCount <= 0 {
		return cfg, errors.New("fetch workers must be > 0")
	}
	if cfg.Images.FetchTimeout <= 0 {
		return cfg, errors.New("fetch timeout must be > 0")
	}
	if cfg.UI.FrameInterval <= 0 {
		return cfg, errors.New("frame interval must be > 0")
	}
	if cfg.UI.PreviewWidth < 4 {
		return cfg, errors.New("preview width must be >= 4")
	}
	if cfg.MetricsPort < 0 {
		return cfg, errors.New("metrics port can't be negative")
	}

	return cfg, nil
}

func readBuildInfo() BuildInfo {
	res := BuildInfo{
		ShortGitHash: "unknown",
		CommitTime:   "unknown",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return res
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			res.ShortGitHash = s.Value
			if len(res.ShortGitHash) > 7 {
				res.ShortGitHash = res.ShortGitHash[:7]
			}

		case "vcs.time":
			t, err := time.Parse(time.RFC3339, s.Value)
			if err == nil {
				res.CommitTime = t.UTC().Format("2006-01-02 15:04:05 UTC")
			}
		}
	}
	return res
}

func (info BuildInfo) Print() {
	fmt.Fprintf(os.Stderr, `
     ___ __ _ _ __ ___   _____   _(_) _____      __
    / __/ _  | '_ ' _ \ / _ \ \ / / |/ _ \ \ /\ / /
   | (_| (_| | | | | | | (_) \ V /| |  __/\ V  V /
    \___\__,_|_| |_| |_|\___/ \_/ |_|\___| \_/\_/

    Commit Hash: %q
    Commit Time: %q

`,
		info.ShortGitHash,
		info.CommitTime,
	)
}

func (cfg Config) Print() {
	flags := cfg.getFlagParams()

	var (
		names         = make([]string, 0, len(flags))
		maxNameLength int
	)
	for name := range flags {
		if len(name) > maxNameLength {
			maxNameLength = len(name)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprint(os.Stderr, "    Config:\n\n")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "        --%-*s = %v\n", maxNameLength, name, reflect.ValueOf(flags[name].p).Elem())
	}
	fmt.Fprint(os.Stderr, "\n")
}
