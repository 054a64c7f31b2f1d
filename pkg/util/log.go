// Package util carries the runtime's logging conventions: a logrus-backed
// global logger plus the SDS log-level knob from spec §6
// (NONE < ERROR < WARN < INFO < DEBUG), modeled as an atomic enum since it
// is legitimately process-wide (Design Notes §9).
package util

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logrus level by name (debug/info/warn/error...).
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger with a field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger with multiple fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// Debug logs at debug level on the global logger.
func Debug(args ...interface{}) { Logger.Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }

// Info logs at info level on the global logger.
func Info(args ...interface{}) { Logger.Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) { Logger.Infof(format, args...) }

// Warn logs at warn level on the global logger.
func Warn(args ...interface{}) { Logger.Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) { Logger.Warnf(format, args...) }

// Error logs at error level on the global logger.
func Error(args ...interface{}) { Logger.Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }

// Fatal logs at fatal level and exits the process.
func Fatal(args ...interface{}) { Logger.Fatal(args...) }

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(format string, args ...interface{}) { Logger.Fatalf(format, args...) }

// WithTable returns a logger with table context.
func WithTable(table string) *logrus.Entry {
	return Logger.WithField("table", table)
}

// WithNode returns a logger with node-id context.
func WithNode(nodeID string) *logrus.Entry {
	return Logger.WithField("node_id", nodeID)
}

// SDSLogLevel is the spec §6 log-level knob, independent of the logrus
// level above: it gates which SDS-internal diagnostics get emitted at all,
// while logrus's own level still governs formatting/output plumbing.
type SDSLogLevel int32

const (
	LevelNone SDSLogLevel = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l SDSLogLevel) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

var sdsLevel int32 = int32(LevelInfo)

// SetSDSLogLevel sets the process-wide SDS log-level gate.
func SetSDSLogLevel(l SDSLogLevel) {
	atomic.StoreInt32(&sdsLevel, int32(l))
}

// GetSDSLogLevel returns the current process-wide SDS log-level gate.
func GetSDSLogLevel() SDSLogLevel {
	return SDSLogLevel(atomic.LoadInt32(&sdsLevel))
}

// SDSEnabled reports whether diagnostics at level l should be emitted.
func SDSEnabled(l SDSLogLevel) bool {
	return l != LevelNone && l <= GetSDSLogLevel()
}
