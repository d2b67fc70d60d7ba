package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// queryLogger reports failed and slow statements through the service logger.
// Not-found lookups are expected control flow and stay quiet.
type queryLogger struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slow, level: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, "gorm", fmt.Errorf(msg, args...))
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		sql, rows := fc()
		q.logg.Error(q.fields(ctx, sql, rows, took), "query failed", err)
	case q.slow > 0 && took > q.slow && q.level >= gormlogger.Warn:
		sql, rows := fc()
		q.logg.Warn(q.fields(ctx, sql, rows, took), "slow query")
	case q.level >= gormlogger.Info:
		sql, rows := fc()
		q.logg.Debug(q.fields(ctx, sql, rows, took), "query")
	}
}

func (q *queryLogger) fields(ctx context.Context, sql string, rows int64, took time.Duration) context.Context {
	return q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": took.Milliseconds(),
	})
}
