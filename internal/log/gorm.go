package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plugward/plugward/internal/version"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// GormLogger implements gorm.io/gorm/logger.Interface on top of slog.
type GormLogger struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	LogLevel                  gormlogger.LogLevel
}

func NewGormLogger() *GormLogger {
	return &GormLogger{
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
		LogLevel: func(hash string) gormlogger.LogLevel {
			if hash == "unknown" {
				return gormlogger.Info
			}
			return gormlogger.Silent
		}(version.VersionHash),
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newlogger := *l
	newlogger.LogLevel = level
	return &newlogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		slog.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		slog.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		slog.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		sql, rows := fc()
		slog.ErrorContext(ctx, fmt.Sprintf("%s [%.3fms] [rows:%d] %s", err, float64(elapsed.Nanoseconds())/1e6, rows, sql),
			slog.String("file", utils.FileWithLineNum()))
	case elapsed > l.SlowThreshold && l.SlowThreshold != 0 && l.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		slog.WarnContext(ctx, fmt.Sprintf("SLOW SQL >= %v [%.3fms] [rows:%d] %s", l.SlowThreshold, float64(elapsed.Nanoseconds())/1e6, rows, sql),
			slog.String("file", utils.FileWithLineNum()))
	case l.LogLevel == gormlogger.Info:
		sql, rows := fc()
		slog.DebugContext(ctx, fmt.Sprintf("[%.3fms] [rows:%d] %s", float64(elapsed.Nanoseconds())/1e6, rows, sql))
	}
}
