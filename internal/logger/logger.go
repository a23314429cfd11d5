// Package logger wires the process-wide slog default to stderr plus a
// rotating execution log file.
package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the execution log.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 30
)

// Setup installs a text slog handler writing to stderr and, when path is
// non-empty, to a size-rotated log file. It returns a closer for the file
// sink (a no-op when file logging is disabled).
func Setup(path string, level slog.Level) io.Closer {
	var sink io.Writer = os.Stderr
	closer := io.Closer(nopCloser{})

	if path != "" {
		file := &lj.Logger{
			Filename:   path,
			MaxSize:    DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAge:     DefaultMaxAgeDays,
		}
		sink = io.MultiWriter(os.Stderr, file)
		closer = file
	}

	handler := slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
