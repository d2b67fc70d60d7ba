package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	// Format is json (default) or console.
	Format string
	Output io.Writer
}

// Logger writes zerolog entries enriched with fields carried on the context.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).Level(opts.Level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{base: base, warnStack: opts.WarnStack}
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return entry
		}
	}
	return &l.base
}

func (l *Logger) with(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	entry := build(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

// WithAmount records a money value with two decimal places.
func (l *Logger) WithAmount(ctx context.Context, key string, amount decimal.Decimal) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str(key, amount.StringFixed(2)) })
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always carries a stack.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.from(ctx).Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
