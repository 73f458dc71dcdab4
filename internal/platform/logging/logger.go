// Package logging wraps zap with a key/value call style and attaches the
// active trace and span IDs when a context is supplied.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// ParseLevel maps APP_LOG_LEVEL values; anything unknown is info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

type Logger struct {
	z      *zap.Logger
	synced *atomic.Bool
}

var fallback atomic.Pointer[Logger]

func init() { fallback.Store(NewNop()) }

// NewJSON writes JSON lines to stdout.
func NewJSON(level Level) *Logger { return New(level, os.Stdout) }

func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
	return FromZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(LevelError)))
}

func NewNop() *Logger { return FromZap(zap.NewNop()) }

func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z, synced: new(atomic.Bool)}
}

// Default is the process-wide logger used by nil receivers.
func Default() *Logger { return fallback.Load() }

func SetDefault(l *Logger) {
	if l == nil {
		l = NewNop()
	}
	fallback.Store(l)
}

func (l *Logger) Zap() *zap.Logger { return l.orDefault().z }

// Sync flushes once; derived loggers share the flag with their root.
func (l *Logger) Sync() error {
	if l == nil || !l.synced.CompareAndSwap(false, true) {
		return nil
	}
	return l.z.Sync()
}

func (l *Logger) With(kv ...any) *Logger {
	l = l.orDefault()
	return &Logger{z: l.z.With(fields(kv)...), synced: l.synced}
}

// Named scopes the logger to a component, e.g. "sync.faceit".
func (l *Logger) Named(name string) *Logger {
	l = l.orDefault()
	return &Logger{z: l.z.Named(name), synced: l.synced}
}

func (l *Logger) Debug(msg string, kv ...any) { l.emit(context.Background(), LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any) { l.emit(context.Background(), LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any) { l.emit(context.Background(), LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.emit(context.Background(), LevelError, msg, kv) }

func (l *Logger) DebugContext(ctx context.Context, msg string, kv ...any) {
	l.emit(ctx, LevelDebug, msg, kv)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, kv ...any) {
	l.emit(ctx, LevelInfo, msg, kv)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, kv ...any) {
	l.emit(ctx, LevelWarn, msg, kv)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, kv ...any) {
	l.emit(ctx, LevelError, msg, kv)
}

func (l *Logger) orDefault() *Logger {
	if l == nil {
		return Default()
	}
	return l
}

func (l *Logger) emit(ctx context.Context, level Level, msg string, kv []any) {
	ce := l.orDefault().z.Check(level, msg)
	if ce == nil {
		return
	}
	out := fields(kv)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
	}
	ce.Write(out...)
}

// fields pairs up kv; a non-string key becomes "arg" and a trailing key
// without a value is logged as null.
func fields(kv []any) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			key = "arg"
		}
		var value any
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		if err, ok := value.(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, value))
	}
	return out
}
