package logx

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(LoadFromEnv()))
}

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// GetDefaultLogger returns the package-level logger.
func GetDefaultLogger() *Logger {
	return defaultLogger.Load()
}

func SetLevel(level Level)  { GetDefaultLogger().SetLevel(level) }
func SetOutput(w io.Writer) { GetDefaultLogger().SetOutput(w) }

func Trace(msg string) { GetDefaultLogger().log(LevelTrace, msg, nil, nil) }
func Debug(msg string) { GetDefaultLogger().log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { GetDefaultLogger().log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { GetDefaultLogger().log(LevelWarn, msg, nil, nil) }
func Error(msg string) { GetDefaultLogger().log(LevelError, msg, nil, nil) }

func Fatal(msg string) {
	l := GetDefaultLogger()
	l.log(LevelFatal, msg, nil, nil)
	l.exit(1)
}

func Debugf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

func Fatalf(format string, args ...interface{}) {
	l := GetDefaultLogger()
	l.log(LevelFatal, fmt.Sprintf(format, args...), nil, nil)
	l.exit(1)
}

func WithFields(fields Fields) *Entry            { return GetDefaultLogger().WithFields(fields) }
func WithField(key string, v interface{}) *Entry { return GetDefaultLogger().WithField(key, v) }
func WithError(err error) *Entry                 { return GetDefaultLogger().WithError(err) }

// Track returns a func that logs op at debug level with the time elapsed
// since Track was called. Use it as defer logx.Track("op")().
func Track(op string) func() {
	start := time.Now()
	return func() {
		GetDefaultLogger().WithField("op", op).Since(start).Debug(op)
	}
}
