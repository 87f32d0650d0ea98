package installer

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/remote"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name    string
	content string
	mode    os.FileMode
}

func makeZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.mode != 0 {
			header.SetMode(e.mode)
		}
		w, err := zw.CreateHeader(header)
		require.NoError(t, err)

		_, err = w.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func newTestInstaller(t *testing.T, mock *httpmock.MockTransport, cfg camoview.InstallConfig) *Installer {
	t.Helper()

	if cfg.MaxArchiveSize == 0 {
		cfg.MaxArchiveSize = 1
	}
	return NewInstaller(remote.NewClient(0, mock), cfg)
}

func TestInstaller_TargetDir(t *testing.T) {
	t.Parallel()

	rec := camoview.Record{
		Nickname:    "panzer_fan",
		VehicleName: "Tiger I",
	}

	for _, tt := range []struct {
		template string
		rec      camoview.Record
		want     string
	}{
		{template: "", rec: rec, want: "/skins/Tiger I"},
		{template: "%USERSKINS/%NICKNAME/%SKIN_NAME - %VEHICLE", rec: rec, want: "/skins/panzer_fan/Tiger I - Tiger I"},
		{template: "%NICKNAME/%VEHICLE", rec: rec, want: "/skins/panzer_fan/Tiger I"},
		{
			template: "%USERSKINS/%NICKNAME/%VEHICLE",
			rec:      camoview.Record{Nickname: "../..", VehicleName: "a/b"},
			want:     "/skins/.._../a_b",
		},
		{template: "%USERSKINS/%NICKNAME", rec: camoview.Record{}, want: "/skins/_"},
	} {
		t.Run("", func(t *testing.T) {
			inst := NewInstaller(nil, camoview.InstallConfig{SkinsDir: "/skins", PathTemplate: tt.template})

			dir, err := inst.TargetDir(tt.rec)
			require.NoError(t, err)
			require.Equal(t, filepath.FromSlash(tt.want), dir)
		})
	}

	t.Run("no skins dir", func(t *testing.T) {
		_, err := NewInstaller(nil, camoview.InstallConfig{}).TargetDir(rec)
		require.ErrorIs(t, err, ErrNoSkinsDir)
	})
}

func TestInstaller_Install(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	const archiveURL = "https://example.com/tiger.zip"

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder("GET", archiveURL, httpmock.NewBytesResponder(200, makeZip(t,
		zipEntry{name: "textures/"},
		zipEntry{name: "textures/body.dds", content: "body", mode: 0o600},
		zipEntry{name: "install.sh", content: "#!/bin/sh", mode: 0o755},
		zipEntry{name: "readme.txt", content: "hello"},
	)))

	skinsDir := t.TempDir()
	inst := newTestInstaller(t, mock, camoview.InstallConfig{
		SkinsDir:     skinsDir,
		PathTemplate: "%USERSKINS/%NICKNAME/%VEHICLE",
	})

	dir, err := inst.Install(t.Context(), camoview.Record{
		Nickname:    "panzer_fan",
		VehicleName: "Tiger I",
		ArchiveURL:  archiveURL,
	})
	r.NoError(err)
	r.Equal(filepath.Join(skinsDir, "panzer_fan", "Tiger I"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "textures", "body.dds"))
	r.NoError(err)
	r.Equal("body", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "readme.txt"))
	r.NoError(err)
	r.Equal("hello", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "install.sh"))
		r.NoError(err)
		r.Equal(os.FileMode(0o755), info.Mode().Perm())

		info, err = os.Stat(filepath.Join(dir, "textures", "body.dds"))
		r.NoError(err)
		r.Equal(os.FileMode(0o600), info.Mode().Perm())
	}

	// Reinstall overwrites files.
	_, err = inst.Install(t.Context(), camoview.Record{
		Nickname:    "panzer_fan",
		VehicleName: "Tiger I",
		ArchiveURL:  archiveURL,
	})
	r.NoError(err)
	r.Equal(2, mock.GetTotalCallCount())
}

func TestInstaller_InstallFile(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	archivePath := filepath.Join(t.TempDir(), "Tiger I winter.zip")
	r.NoError(os.WriteFile(archivePath, makeZip(t,
		zipEntry{name: "textures/body.dds", content: "body"},
		zipEntry{name: "blk.txt", content: "blk"},
	), 0o600))

	skinsDir := t.TempDir()
	inst := NewInstaller(nil, camoview.InstallConfig{SkinsDir: skinsDir})

	dir, err := inst.InstallFile(archivePath)
	r.NoError(err)
	r.Equal(filepath.Join(skinsDir, "Tiger I winter"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "textures", "body.dds"))
	r.NoError(err)
	r.Equal("body", string(data))

	t.Run("errors", func(t *testing.T) {
		r := require.New(t)

		_, err := NewInstaller(nil, camoview.InstallConfig{}).InstallFile(archivePath)
		r.ErrorIs(err, ErrNoSkinsDir)

		_, err = inst.InstallFile(filepath.Join(t.TempDir(), "missing.zip"))
		r.ErrorIs(err, os.ErrNotExist)

		_, err = inst.InstallFile(t.TempDir())
		r.ErrorContains(err, "is not a file")

		unsafe := filepath.Join(t.TempDir(), "evil.zip")
		r.NoError(os.WriteFile(unsafe, makeZip(t, zipEntry{name: "../evil.txt", content: "evil"}), 0o600))
		_, err = inst.InstallFile(unsafe)
		r.ErrorIs(err, ErrUnsafePath)

		_, err = os.Stat(filepath.Join(skinsDir, "evil"))
		r.ErrorIs(err, os.ErrNotExist)
	})
}

func TestInstaller_UnsafePath(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"../evil.txt", "skins/../../evil.txt", "/etc/evil.txt", `..\evil.txt`} {
		t.Run("", func(t *testing.T) {
			r := require.New(t)

			mock := httpmock.NewMockTransport()
			mock.RegisterResponder("GET", "https://example.com/evil.zip", httpmock.NewBytesResponder(200, makeZip(t,
				zipEntry{name: "ok.txt", content: "ok"},
				zipEntry{name: name, content: "evil"},
			)))

			skinsDir := t.TempDir()
			inst := newTestInstaller(t, mock, camoview.InstallConfig{SkinsDir: skinsDir})

			_, err := inst.Install(t.Context(), camoview.Record{
				VehicleName: "Evil",
				ArchiveURL:  "https://example.com/evil.zip",
			})
			r.ErrorIs(err, ErrUnsafePath)

			// Nothing is extracted.
			entries, err := os.ReadDir(skinsDir)
			r.NoError(err)
			r.Empty(entries)
		})
	}
}

func TestInstaller_Errors(t *testing.T) {
	t.Parallel()

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder("GET", "https://example.com/missing.zip", httpmock.NewStringResponder(404, "not found"))
	mock.RegisterResponder("GET", "https://example.com/large.zip", httpmock.NewBytesResponder(200, make([]byte, 2<<20)))
	mock.RegisterResponder("GET", "https://example.com/broken.zip", httpmock.NewStringResponder(200, "not a zip"))

	skinsDir := t.TempDir()
	inst := newTestInstaller(t, mock, camoview.InstallConfig{SkinsDir: skinsDir, MaxArchiveSize: 1})

	install := func(url string) error {
		_, err := inst.Install(t.Context(), camoview.Record{VehicleName: "T-34", ArchiveURL: url})
		return err
	}

	t.Run("no archive", func(t *testing.T) {
		require.ErrorIs(t, install(""), ErrNoArchive)
	})

	t.Run("not found", func(t *testing.T) {
		err := install("https://example.com/missing.zip")
		require.True(t, camoview.IsNotFoundError(err))
	})

	t.Run("too large", func(t *testing.T) {
		require.ErrorIs(t, install("https://example.com/large.zip"), ErrArchiveTooLarge)
	})

	t.Run("broken archive", func(t *testing.T) {
		require.Error(t, install("https://example.com/broken.zip"))
	})

	t.Run("no skins dir", func(t *testing.T) {
		_, err := NewInstaller(nil, camoview.InstallConfig{}).Install(t.Context(), camoview.Record{ArchiveURL: "x"})
		require.ErrorIs(t, err, ErrNoSkinsDir)
	})
}
