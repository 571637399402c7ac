package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Logger is the main logger instance
type Logger struct {
	mu        sync.Mutex
	level     Level
	caller    bool
	formatter Formatter
	writer    io.Writer
	exitFunc  func(int)
}

// NewLogger creates a new logger with the given config
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var formatter Formatter = &consoleFormatter{config: config}
	if config.Format == FormatJSON {
		formatter = &jsonFormatter{config: config}
	}

	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}

	return &Logger{
		level:     config.Level,
		caller:    config.EnableCaller,
		formatter: formatter,
		writer:    writer,
		exitFunc:  os.Exit,
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLogger(&Config{Level: LevelOff, Output: io.Discard})
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if !l.GetLevel().Enabled(level) {
		return
	}

	rec := &Record{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Error:     err,
		Timestamp: time.Now(),
	}
	if l.caller {
		rec.Caller = caller(3)
	}

	formatted, ferr := l.formatter.Format(rec)
	if ferr != nil {
		fmt.Fprintf(os.Stderr, "Error formatting log: %v\n", ferr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, werr := l.writer.Write(formatted); werr != nil {
		fmt.Fprintf(os.Stderr, "Error writing log: %v\n", werr)
	}
}

func (l *Logger) WithField(key string, value interface{}) *Entry {
	return newEntry(l).WithField(key, value)
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

func (l *Logger) exit(code int) {
	l.exitFunc(code)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
