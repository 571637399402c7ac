package logx

import (
	"strings"
)

// Level represents logging level
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	// LevelOff disables all logging
	LevelOff
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", "OFF"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel parses a level name. Unknown names fall back to INFO.
func ParseLevel(level string) Level {
	name := strings.ToUpper(strings.TrimSpace(level))
	if name == "WARNING" {
		return LevelWarn
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i)
		}
	}
	return LevelInfo
}

// UnmarshalText lets Level be decoded straight from env tags.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}

// Enabled reports whether target is at or above l.
func (l Level) Enabled(target Level) bool {
	return l <= target
}
