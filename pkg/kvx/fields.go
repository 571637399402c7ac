package kvx

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Fields is the storage form of a record: a flat string hash.
//
// Booleans are stored as "true"/"false", timestamps as RFC 3339 with
// nanoseconds, expirations as epoch milliseconds and string lists as a
// sorted JSON array. The accessors below are the only place those
// encodings are spelled out.
type Fields map[string]string

const (
	boolTrue  = "true"
	boolFalse = "false"
)

func (f Fields) Empty() bool {
	return len(f) == 0
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) Bool(key string) bool {
	return f[key] == boolTrue
}

func (f Fields) SetBool(key string, v bool) {
	if v {
		f[key] = boolTrue
		return
	}
	f[key] = boolFalse
}

// Time returns the zero time when the field is absent or malformed.
func (f Fields) Time(key string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, f[key])
	if err != nil {
		return time.Time{}
	}
	return t
}

func (f Fields) SetTime(key string, t time.Time) {
	f[key] = t.UTC().Format(time.RFC3339Nano)
}

// Millis returns the epoch-millisecond value and whether it parsed.
func (f Fields) Millis(key string) (int64, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

func (f Fields) SetMillis(key string, ms int64) {
	f[key] = strconv.FormatInt(ms, 10)
}

// Strings decodes a JSON string list. Absent or malformed fields yield nil.
func (f Fields) Strings(key string) []string {
	raw, ok := f[key]
	if !ok || raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// SetStrings stores vs as a sorted, de-duplicated JSON list.
func (f Fields) SetStrings(key string, vs []string) {
	raw, _ := json.Marshal(Canonical(vs))
	f[key] = string(raw)
}

// Canonical returns vs sorted and de-duplicated. It never returns nil.
func Canonical(vs []string) []string {
	seen := make(map[string]struct{}, len(vs))
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// EncodeStrings is the canonical string form of a list, for comparisons.
func EncodeStrings(vs []string) string {
	raw, _ := json.Marshal(Canonical(vs))
	return string(raw)
}

// SetValue stores a string or bool property value. It reports false, and
// stores nothing, for any other type.
func (f Fields) SetValue(key string, v any) bool {
	switch val := v.(type) {
	case string:
		f[key] = val
	case bool:
		f.SetBool(key, val)
	default:
		return false
	}
	return true
}
