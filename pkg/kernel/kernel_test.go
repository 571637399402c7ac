package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthContextScopes(t *testing.T) {
	ac := &AuthContext{ConsumerID: "c1", ConsumerKind: ConsumerUser, Scopes: []string{"read", "write"}}

	assert.True(t, ac.IsValid())
	assert.True(t, ac.HasAllScopes("read", "write"))
	assert.False(t, ac.HasAllScopes("read", "admin"))
	assert.True(t, ac.HasAnyScope("admin", "read"))
	assert.True(t, ac.HasAllScopes())
}

func TestAuthContextRoundTrip(t *testing.T) {
	ac := &AuthContext{ConsumerID: "c1", ConsumerKind: ConsumerApplication}
	ctx := WithAuthContext(context.Background(), ac)

	got, ok := AuthContextFrom(ctx)
	assert.True(t, ok)
	assert.Same(t, ac, got)

	_, ok = AuthContextFrom(context.Background())
	assert.False(t, ok)
}

func TestCursorPage(t *testing.T) {
	p := NewCursorPage[string](nil, 0)
	assert.True(t, p.Empty())
	assert.False(t, p.HasNext())
	assert.NotNil(t, p.Items)
}
