package rlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) MarshalText() (text []byte, err error) {
	return []byte(l), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	switch lvl := Level(text); lvl {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		*l = lvl
		return nil
	default:
		return fmt.Errorf("invalid level %q, valid values: %v", lvl, []Level{LevelDebug, LevelInfo, LevelWarn, LevelError})
	}
}

const flags = log.Ldate | log.Ltime | log.Lmsgprefix

var (
	debug = log.New(io.Discard, "[DBG] ", flags)
	info  = log.New(os.Stderr, "[INF] ", flags)
	warn  = log.New(os.Stderr, "[WRN] ", flags)
	err   = log.New(os.Stderr, "[ERR] ", flags)

	mu     sync.Mutex
	level  = LevelInfo
	output io.Writer = os.Stderr
)

// SetLevel sets the minimal level of messages that will be written.
func SetLevel(lvl Level) {
	mu.Lock()
	defer mu.Unlock()

	level = lvl
	apply()
}

// SetOutput changes the destination for all levels. The current level is preserved.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	apply()
}

func apply() {
	writers := map[*log.Logger]bool{
		debug: level == LevelDebug,
		info:  level == LevelDebug || level == LevelInfo,
		warn:  level != LevelError,
		err:   true,
	}
	for l, enabled := range writers {
		if enabled {
			l.SetOutput(output)
		} else {
			l.SetOutput(io.Discard)
		}
	}
}

func Debug(v ...any)                 { debug.Println(v...) }
func Debugf(format string, v ...any) { debug.Printf(format, v...) }

func Info(v ...any)                 { info.Println(v...) }
func Infof(format string, v ...any) { info.Printf(format, v...) }

func Warn(v ...any)                 { warn.Println(v...) }
func Warnf(format string, v ...any) { warn.Printf(format, v...) }

func Error(v ...any)                 { err.Println(v...) }
func Errorf(format string, v ...any) { err.Printf(format, v...) }
