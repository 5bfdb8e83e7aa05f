// Package logger wraps a process-wide zerolog logger behind the small
// Info/Warn/Error helper set used across the code base.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const filePermission = 0o664

var (
	mu      sync.RWMutex
	base    = newConsole(os.Stdout, zerolog.InfoLevel)
	logFile *os.File
)

// Options controls where log lines go.
type Options struct {
	Level string
	// File, when set, additionally receives JSON lines.
	File string
	// Output overrides the console writer; tests use a buffer here.
	Output io.Writer
}

// InitLogger configures the global logger. It may be called more than once;
// a previously opened log file is closed.
func InitLogger(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if opts.Output != nil {
		out = opts.Output
	}

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", opts.File, err)
		}
		logFile = f
		out = zerolog.MultiLevelWriter(out, zerolog.SyncWriter(f))
	}

	base = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// ParseLevel accepts debug, info, warn and error; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// With returns a child logger carrying structured context, e.g.
// logger.With().Str("entity", "movies").Logger().
func With() zerolog.Context {
	return current().With()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

func newConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

func Debugf(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

func Info(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

func Error(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}

func Warn(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}
