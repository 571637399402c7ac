package kvx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldsCodec(t *testing.T) {
	f := Fields{}
	f.SetBool("isActive", true)
	f.SetStrings("scopes", []string{"write", "read", "write"})
	f.SetMillis("expiresAt", 1700000000123)
	now := time.Date(2024, 5, 1, 10, 0, 0, 42, time.UTC)
	f.SetTime("createdAt", now)

	assert.Equal(t, "true", f["isActive"])
	assert.True(t, f.Bool("isActive"))
	assert.Equal(t, `["read","write"]`, f["scopes"])
	assert.Equal(t, []string{"read", "write"}, f.Strings("scopes"))
	ms, ok := f.Millis("expiresAt")
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000123), ms)
	assert.True(t, now.Equal(f.Time("createdAt")))

	f.SetBool("isActive", false)
	assert.Equal(t, "false", f["isActive"])
	assert.False(t, f.Bool("missing"))
	assert.Nil(t, f.Strings("missing"))
	_, ok = f.Millis("missing")
	assert.False(t, ok)
	assert.True(t, f.Time("missing").IsZero())
}

func TestMalformedStrings(t *testing.T) {
	f := Fields{"scopes": "not json"}
	assert.Nil(t, f.Strings("scopes"))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, []string{}, Canonical(nil))
	assert.Equal(t, []string{"a", "b"}, Canonical([]string{"b", "a", "b"}))
	assert.Equal(t, EncodeStrings([]string{"b", "a"}), EncodeStrings([]string{"a", "b"}))
}

func TestRepliesOK(t *testing.T) {
	assert.True(t, Replies{}.OK())
	assert.True(t, Replies{1, 2}.OK())
	assert.False(t, Replies{1, 0}.OK())
}

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"eg-user:*", "eg-user:123", true},
		{"eg-user:*", "eg-username:bob", false},
		{"eg-user:*", "eg-user:", true},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"*:*", "x:y", true},
		{`a\*`, "a*", true},
		{`a\*`, "ab", false},
		{"abc", "abcd", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Match(c.pattern, c.key), "%s ~ %s", c.pattern, c.key)
	}
}

func TestSetValue(t *testing.T) {
	f := Fields{}
	assert.True(t, f.SetValue("name", "app"))
	assert.True(t, f.SetValue("public", false))
	assert.False(t, f.SetValue("count", 3))
	assert.Equal(t, Fields{"name": "app", "public": "false"}, f)
}
