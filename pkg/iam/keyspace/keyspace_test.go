package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	k := New("eg")

	assert.Equal(t, "eg-scope", k.Scopes())
	assert.Equal(t, "eg-scope-credentials:read", k.ScopeCredentials("read"))
	assert.Equal(t, "eg-key-auth:abc", k.Credential("key-auth", "abc"))
	assert.Equal(t, "eg-user:1", k.User("1"))
	assert.Equal(t, "eg-user:*", k.UserPattern())
	assert.Equal(t, "eg-username:bob", k.Username("bob"))
	assert.Equal(t, "eg-user-applications:1", k.UserApplications("1"))
	assert.Equal(t, "eg-application:2", k.Application("2"))
	assert.Equal(t, "eg-application-name:app", k.ApplicationName("app"))
	assert.Equal(t, "eg-auth-code:c", k.AuthCode("c"))
	assert.Equal(t, "eg-access_token:t", k.Token("access_token", "t"))
	assert.Equal(t, "eg-consumer-refresh_tokens:u1", k.ConsumerTokens("refresh_token", "u1"))
}
