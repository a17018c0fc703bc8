// Package logging configures the process-wide zerolog logger.
//
// Two sinks: a human console writer on stderr and a rotating debug.log
// under the data directory. The console stays at info level unless debug
// is enabled; the file always records down to debug so a failed run
// leaves a diagnostics trail without rerunning.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// levelWriter drops events below min, letting the console and the file
// sink run at different levels under a single logger.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) { return lw.w.Write(p) }

func (lw levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// Setup installs the global logger. dataDir may be empty, in which case
// only the console sink is active (used by tests).
func Setup(debug bool, dataDir string) {
	consoleLevel := zerolog.InfoLevel
	if debug {
		consoleLevel = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}

	sinks := []io.Writer{levelWriter{w: console, min: consoleLevel}}
	if dataDir != "" {
		fileSink := &lumberjack.Logger{
			Filename:   filepath.Join(dataDir, "debug.log"),
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		sinks = append(sinks, levelWriter{w: fileSink, min: zerolog.DebugLevel})
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp()
	if debug {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
}
