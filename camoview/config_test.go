package camoview

import (
	"flag"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyMode(t *testing.T) {
	r := require.New(t)

	var v CacheKeyMode
	r.Error(v.UnmarshalText([]byte("xxx")))

	r.NoError(v.UnmarshalText([]byte("hash")))
	r.Equal(CacheKeyHash, v)
}

func TestMiB(t *testing.T) {
	for _, tt := range []struct {
		in        string
		wantErr   string
		wantText  string
		wantBytes int64
	}{
		{in: "1Mi", wantText: "1Mi", wantBytes: 1 << 20},
		{in: "500Mi", wantText: "500Mi", wantBytes: 500 << 20},
		{in: "1024Mi", wantText: "1Gi", wantBytes: 1 << 30},
		{in: "2047Mi", wantText: "2047Mi", wantBytes: 2047 << 20},
		{in: "2048Mi", wantText: "2Gi", wantBytes: 2 << 30},
		{in: "1Gi", wantText: "1Gi", wantBytes: 1 << 30},
		{in: "3Gi", wantText: "3Gi", wantBytes: 3 << 30},
		//
		{in: "3GiB", wantErr: "valid suffixes: Mi, Gi", wantText: "0Mi"},
		{in: "3xGi", wantErr: "invalid size: strconv.Atoi", wantText: "0Mi"},
	} {
		t.Run("", func(t *testing.T) {
			r := require.New(t)

			var s MiB
			err := s.UnmarshalText([]byte(tt.in))
			if tt.wantErr == "" {
				r.NoError(err)
			} else {
				r.Error(err)
				r.Contains(err.Error(), tt.wantErr)
			}

			r.Equal(tt.wantText, s.String())
			r.Equal(tt.wantBytes, s.Bytes())
		})
	}
}

func TestParseConfig(t *testing.T) {
	newFlagSet := func() *flag.FlagSet {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		return fs
	}

	t.Run("defaults", func(t *testing.T) {
		r := require.New(t)

		cfg, err := parseConfig(newFlagSet(), []string{"-dir", "/tmp/camoview"})
		r.NoError(err)

		r.Equal(filepath.Join("/tmp/camoview", "catalog.db"), cfg.DBPath)
		r.Equal(filepath.Join("/tmp/camoview", "camoview.log"), cfg.LogFile)
		r.Equal(filepath.Join("/tmp/camoview", "images"), cfg.CacheDir())
		r.Equal(CacheKeyFilename, cfg.Images.KeyMode)
		r.Equal(time.Minute, cfg.Images.FetchTimeout)
		r.Equal(MiB(512), cfg.Install.MaxArchiveSize)
		r.Equal(rlog.LevelInfo, cfg.LogLevel)
		r.Positive(cfg.Images.WorkersCount)
		r.False(cfg.HasCommand())
	})

	t.Run("commands", func(t *testing.T) {
		for _, args := range [][]string{
			{"-clear-cache"},
			{"-export-tags", "tags.yaml"},
			{"-import-tags", "tags.yaml"},
			{"-install-file", "skin.zip"},
		} {
			cfg, err := parseConfig(newFlagSet(), args)
			require.NoError(t, err)
			require.True(t, cfg.HasCommand(), "args: %v", args)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		r := require.New(t)

		cfg, err := parseConfig(newFlagSet(), []string{
			"-cache-key-mode", "hash",
			"-fetch-workers", "3",
			"-frame-interval", "10ms",
			"-max-archive-size", "1Gi",
			"-db", "/data/camos.db",
			"-log-level", "debug",
		})
		r.NoError(err)

		r.Equal(CacheKeyHash, cfg.Images.KeyMode)
		r.Equal(3, cfg.Images.WorkersCount)
		r.Equal(10*time.Millisecond, cfg.UI.FrameInterval)
		r.Equal(int64(1<<30), cfg.Install.MaxArchiveSize.Bytes())
		r.Equal("/data/camos.db", cfg.DBPath)
		r.Equal(rlog.LevelDebug, cfg.LogLevel)
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, args := range [][]string{
			{"-cache-key-mode", "md5"},
			{"-fetch-workers", "0"},
			{"-dir", ""},
			{"-preview-width", "1"},
		} {
			_, err := parseConfig(newFlagSet(), args)
			require.Error(t, err, "args: %v", args)
		}
	})
}
