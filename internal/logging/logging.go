// Package logging builds the service logger on top of charmbracelet/log.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gormlogger "gorm.io/gorm/logger"

	"todo-tracker/internal/config"
)

const prefix = "todo"

// New creates the process logger from the log section of the config.
func New(cfg config.LogConfig) *log.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(cfg.Level),
		Formatter:       ParseFormatter(cfg.Format),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter maps a format name to a log.Formatter, defaulting to text.
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// ParseGormLevel maps a level name to the GORM logger level.
func ParseGormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// GormWriter adapts a logger to gorm's logger.Writer. gorm only hands the
// writer a formatted line, so the level is recovered from the markers gorm
// puts in it: failed statements log at error, slow ones and warnings at warn.
type GormWriter struct {
	Logger *log.Logger
}

func (w GormWriter) Printf(format string, args ...interface{}) {
	switch gormLineLevel(format, args) {
	case log.ErrorLevel:
		w.Logger.Errorf(format, args...)
	case log.WarnLevel:
		w.Logger.Warnf(format, args...)
	default:
		w.Logger.Infof(format, args...)
	}
}

func gormLineLevel(format string, args []interface{}) log.Level {
	if strings.Contains(format, "[error]") {
		return log.ErrorLevel
	}
	for _, arg := range args {
		if _, ok := arg.(error); ok {
			return log.ErrorLevel
		}
	}
	if strings.Contains(format, "[warn]") {
		return log.WarnLevel
	}
	for _, arg := range args {
		if s, ok := arg.(string); ok && strings.HasPrefix(s, "SLOW SQL") {
			return log.WarnLevel
		}
	}
	return log.InfoLevel
}
