package rlog

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	r := require.New(t)

	SetLevel(LevelError)
	r.Equal(io.Discard, debug.Writer())
	r.Equal(io.Discard, info.Writer())
	r.Equal(io.Discard, warn.Writer())
	r.Equal(os.Stderr, err.Writer())

	SetLevel(LevelWarn)
	r.Equal(io.Discard, debug.Writer())
	r.Equal(io.Discard, info.Writer())
	r.Equal(os.Stderr, warn.Writer())
	r.Equal(os.Stderr, err.Writer())

	SetLevel(LevelDebug)
	r.Equal(os.Stderr, debug.Writer())
	r.Equal(os.Stderr, info.Writer())
	r.Equal(os.Stderr, warn.Writer())
	r.Equal(os.Stderr, err.Writer())

	SetLevel(LevelInfo)
	r.Equal(io.Discard, debug.Writer()) // should set io.Discard
	r.Equal(os.Stderr, info.Writer())
	r.Equal(os.Stderr, warn.Writer())
	r.Equal(os.Stderr, err.Writer())
}

func TestSetOutput(t *testing.T) {
	r := require.New(t)

	buf := bytes.NewBuffer(nil)
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	SetLevel(LevelWarn)
	Info("hidden")
	Warnf("visible %d", 1)
	Error("error")

	r.NotContains(buf.String(), "hidden")
	r.Contains(buf.String(), "[WRN] visible 1")
	r.Contains(buf.String(), "[ERR] error")
}

func TestLevel_UnmarshalText(t *testing.T) {
	r := require.New(t)

	var lvl Level
	r.Error(lvl.UnmarshalText([]byte("trace")))

	r.NoError(lvl.UnmarshalText([]byte("debug")))
	r.Equal(LevelDebug, lvl)
}
