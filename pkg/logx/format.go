package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fields is a map of structured data
type Fields map[string]interface{}

// Record is a single log line before formatting.
type Record struct {
	Level     Level
	Message   string
	Fields    Fields
	Error     error
	Timestamp time.Time
	Caller    string
}

// Formatter renders a record to bytes.
type Formatter interface {
	Format(r *Record) ([]byte, error)
}

const (
	colorReset    = "\033[0m"
	colorRed      = "\033[31m"
	colorCyan     = "\033[36m"
	colorGray     = "\033[90m"
	colorBoldRed  = "\033[1;31m"
	colorBoldCyan = "\033[1;36m"
	colorBoldYell = "\033[1;33m"
	colorBoldGrn  = "\033[1;32m"
)

var levelColors = map[Level]string{
	LevelTrace: colorGray,
	LevelDebug: colorBoldCyan,
	LevelInfo:  colorBoldGrn,
	LevelWarn:  colorBoldYell,
	LevelError: colorBoldRed,
	LevelFatal: colorBoldRed,
}

type consoleFormatter struct {
	config *Config
}

func (f *consoleFormatter) paint(b *strings.Builder, color, s string) {
	if f.config.EnableColors && color != "" {
		b.WriteString(color)
		b.WriteString(s)
		b.WriteString(colorReset)
		return
	}
	b.WriteString(s)
}

func (f *consoleFormatter) Format(r *Record) ([]byte, error) {
	var b strings.Builder

	f.paint(&b, colorGray, formatTimestamp(r.Timestamp, f.config.TimeFormat))
	b.WriteByte(' ')
	f.paint(&b, levelColors[r.Level], fmt.Sprintf("[%-5s]", r.Level))
	b.WriteByte(' ')
	if r.Caller != "" {
		f.paint(&b, colorGray, "["+r.Caller+"] ")
	}
	b.WriteString(r.Message)

	if len(r.Fields) > 0 {
		pairs := make([]string, 0, len(r.Fields))
		for _, k := range sortedKeys(r.Fields) {
			if k == "error" && r.Error != nil {
				continue
			}
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, r.Fields[k]))
		}
		if len(pairs) > 0 {
			b.WriteByte(' ')
			f.paint(&b, colorCyan, strings.Join(pairs, " "))
		}
	}

	if r.Error != nil {
		b.WriteString("\n")
		f.paint(&b, colorRed, "  ╰─→ error: "+r.Error.Error())
	}
	b.WriteString("\n")
	return []byte(b.String()), nil
}

type jsonFormatter struct {
	config *Config
}

func (f *jsonFormatter) Format(r *Record) ([]byte, error) {
	data := make(map[string]interface{}, len(r.Fields)+4)
	for k, v := range r.Fields {
		data[k] = v
	}
	data["level"] = r.Level.String()
	data["message"] = r.Message
	switch f.config.TimeFormat {
	case "unix":
		data["timestamp"] = r.Timestamp.Unix()
	case "unixmilli":
		data["timestamp"] = r.Timestamp.UnixMilli()
	default:
		data["timestamp"] = r.Timestamp.Format(time.RFC3339Nano)
	}
	if r.Caller != "" {
		data["caller"] = r.Caller
	}
	if r.Error != nil {
		data["error"] = r.Error.Error()
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func formatTimestamp(t time.Time, format string) string {
	switch format {
	case "unix":
		return fmt.Sprintf("%d", t.Unix())
	case "unixmilli":
		return fmt.Sprintf("%d", t.UnixMilli())
	default:
		return t.Format(format)
	}
}

func sortedKeys(f Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
