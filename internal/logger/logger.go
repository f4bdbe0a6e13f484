// Package logger builds the slog loggers used by the CLI.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type Level slog.Level

var (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

type HandlerOption func(*tint.Options)

func WithTimeFormat(format string) HandlerOption {
	return func(opts *tint.Options) {
		opts.TimeFormat = format
	}
}

func WithNoColor(noColor bool) HandlerOption {
	return func(opts *tint.Options) {
		opts.NoColor = noColor
	}
}

// NewHandlerOptions colours output and uses a short time format only when w
// is a terminal.
func NewHandlerOptions(w io.Writer, level Level, opts ...HandlerOption) *tint.Options {
	terminal := isTerminal(w)
	tintOpts := &tint.Options{
		Level:      slog.Level(level),
		NoColor:    !terminal,
		TimeFormat: time.RFC3339,
	}
	if terminal {
		tintOpts.TimeFormat = time.Stamp
	}
	for _, opt := range opts {
		opt(tintOpts)
	}
	return tintOpts
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type LoggerOption func(*Logger)

func WithName(name string) LoggerOption {
	return func(l *Logger) {
		l.name = name
	}
}

func WithLevel(level Level) LoggerOption {
	return func(l *Logger) {
		l.level = level
	}
}

// WithWriter sends output to w instead of stderr.
func WithWriter(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.out = w
	}
}

func WithHandler(handler slog.Handler) LoggerOption {
	return func(l *Logger) {
		l.handler = handler
	}
}

func WithHandlerOptions(opts ...HandlerOption) LoggerOption {
	return func(l *Logger) {
		l.opts = opts
	}
}

// Logger wraps a slog.Logger writing through tint.
type Logger struct {
	*slog.Logger
	level   Level
	handler slog.Handler
	name    string
	out     io.Writer
	opts    []HandlerOption
}

// NewLogger creates a logger at info level on stderr unless told otherwise.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		level: LevelInfo,
		out:   os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.handler == nil {
		l.handler = tint.NewHandler(l.out, NewHandlerOptions(l.out, l.level, l.opts...))
	}
	l.Logger = slog.New(l.handler)
	if l.name != "" {
		l.Logger = l.Logger.With("logger", l.name)
	}
	return l
}

// Level reports the minimum level the logger was built with.
func (l *Logger) Level() Level { return l.level }

// Named returns a child logger tagged with name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:  l.Logger.With("logger", name),
		level:   l.level,
		handler: l.handler,
		name:    name,
		out:     l.out,
		opts:    l.opts,
	}
}
