// Package logging initializes the process-wide structured logger and the
// debug-category bitmask that gates verbose VT-event and PTY-byte logging
// (the `debug-log` IPC command, §6.2/§9).
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Log is the process-wide logger, valid after Init.
var Log *slog.Logger

// Init sets up the default slog logger: a text handler writing to stdout
// and, when logFile is non-empty, also to that file, with shortened
// timestamps.
func Init(level string, logFile string) error {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writers := []io.Writer{os.Stdout}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)
	return nil
}

// Debug logs at debug level through the package logger.
func Debug(msg string, args ...any) { Log.Debug(msg, args...) }

// Info logs at info level through the package logger.
func Info(msg string, args ...any) { Log.Info(msg, args...) }

// Warn logs at warn level through the package logger.
func Warn(msg string, args ...any) { Log.Warn(msg, args...) }

// Error logs at error level through the package logger.
func Error(msg string, args ...any) { Log.Error(msg, args...) }
