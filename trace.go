package autoroute

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var runtimeLogger atomic.Pointer[slog.Logger]

// SetLogger replaces the logger used for traces and response errors. A nil
// logger restores slog.Default.
func SetLogger(l *slog.Logger) { runtimeLogger.Store(l) }

// Logger returns the runtime logger.
func Logger() *slog.Logger {
	if l := runtimeLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Trace logs msg at debug level.
func Trace(ctx context.Context, msg string) {
	Logger().DebugContext(ctx, msg)
}

// TraceValue logs "* label: value" at debug level. The value is only
// formatted when debug logging is enabled.
func TraceValue(ctx context.Context, label string, v any) {
	l := Logger()
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.DebugContext(ctx, fmt.Sprintf("* %s: %+v", label, v))
}
