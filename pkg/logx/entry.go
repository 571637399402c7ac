package logx

import (
	"fmt"
	"time"
)

// Entry allows for building up log entries with multiple fields
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func newEntry(logger *Logger) *Entry {
	return &Entry{
		logger: logger,
		fields: make(Fields),
	}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

func (e *Entry) WithError(err error) *Entry {
	e.err = err
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

// Since records the elapsed time since start as "elapsed".
func (e *Entry) Since(start time.Time) *Entry {
	e.fields["elapsed"] = time.Since(start).Round(time.Microsecond).String()
	return e
}

func (e *Entry) Trace(msg string) { e.logger.log(LevelTrace, msg, e.fields, e.err) }
func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields, e.err) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields, e.err) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields, e.err) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields, e.err) }

func (e *Entry) Fatal(msg string) {
	e.logger.log(LevelFatal, msg, e.fields, e.err)
	e.logger.exit(1)
}

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields, e.err)
}
