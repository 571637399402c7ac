package tokensrv

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token/tokeninfra"
	"github.com/Abraxas-365/gatekeep/pkg/kvx/kvxmemory"
)

var keys = keyspace.New("EG")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fixture struct {
	store *kvxmemory.Store
	clock *clock
	svc   *TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kvxmemory.New()
	cipher, err := cryptox.NewAESGCM("aes-256-gcm", "test-cipher-key")
	require.NoError(t, err)
	signer, err := NewJWTSigner(config.JWTConfig{Algorithm: "HS256", Issuer: "gatekeep", TTL: time.Hour}, []byte("jwt-secret"))
	require.NoError(t, err)

	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewTokenService(tokeninfra.NewKVTokenRepository(store, keys), cipher, signer, time.Hour, 24*time.Hour, cryptox.NewCompactID)
	svc.now = c.now
	return &fixture{store: store, clock: c, svc: svc}
}

func TestSaveGetRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Save(ctx, token.Criteria{ConsumerID: "u1"}, token.SaveOptions{IncludeRefreshToken: true})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	at, err := f.svc.Get(ctx, pair.AccessToken, token.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, "u1", at.ConsumerID)
	assert.Equal(t, pair.AccessToken, at.External())

	id, secret, ok := token.ParseExternal(pair.AccessToken)
	require.True(t, ok)
	assert.Equal(t, at.ID, id)
	assert.Equal(t, at.Secret, secret)

	stored, err := f.store.HGetAll(ctx, keys.Token("access_token", id))
	require.NoError(t, err)
	assert.NotContains(t, stored["tokenEncrypted"], secret)

	require.NoError(t, f.svc.Revoke(ctx, pair.AccessToken, token.GetOptions{}))
	gone, err := f.svc.Get(ctx, pair.AccessToken, token.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, gone)

	err = f.svc.Revoke(ctx, pair.AccessToken, token.GetOptions{})
	assert.True(t, errx.Is(err, token.ErrNotFound()))

	rt, err := f.svc.Get(ctx, pair.RefreshToken, token.GetOptions{Type: token.TypeRefresh})
	require.NoError(t, err)
	assert.NotNil(t, rt)
}

func TestSaveRequiresConsumer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Save(context.Background(), token.Criteria{}, token.SaveOptions{})
	assert.True(t, errx.IsType(err, errx.TypeValidation))
}

func TestGetIgnoresMalformedTokens(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"", "no-separator", "|secret"} {
		tok, err := f.svc.Get(context.Background(), raw, token.GetOptions{})
		require.NoError(t, err)
		assert.Nil(t, tok, raw)
	}
}

func TestExpiredTokensArePurged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Save(ctx, token.Criteria{ConsumerID: "u1"}, token.SaveOptions{})
	require.NoError(t, err)
	id, _, _ := token.ParseExternal(pair.AccessToken)

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	tok, err := f.svc.Get(ctx, pair.AccessToken, token.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, tok)

	record, err := f.store.HGetAll(ctx, keys.Token("access_token", id))
	require.NoError(t, err)
	assert.True(t, record.Empty())
	index, err := f.store.HGetAll(ctx, keys.ConsumerTokens("access_token", "u1"))
	require.NoError(t, err)
	assert.False(t, index.Has(id))
}

func TestFindMatchesExactCriteria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := token.Criteria{ConsumerID: "app1", AuthenticatedUserID: "u1", Scopes: []string{"write", "read"}}

	pair, err := f.svc.Save(ctx, c, token.SaveOptions{})
	require.NoError(t, err)

	found, err := f.svc.Find(ctx, token.Criteria{ConsumerID: "app1", AuthenticatedUserID: "u1", Scopes: []string{"read", "write"}}, token.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, found.AccessToken)

	for _, miss := range []token.Criteria{
		{ConsumerID: "app1", Scopes: []string{"read", "write"}},
		{ConsumerID: "app1", AuthenticatedUserID: "u1", Scopes: []string{"read"}},
		{ConsumerID: "app1", AuthenticatedUserID: "u1"},
		{ConsumerID: "app2", AuthenticatedUserID: "u1", Scopes: []string{"read", "write"}},
	} {
		got, err := f.svc.Find(ctx, miss, token.FindOptions{IncludeRefreshToken: true})
		require.NoError(t, err)
		assert.True(t, got.Empty(), "%+v", miss)
	}
}

func TestFindOrSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := token.Criteria{ConsumerID: "u1", Scopes: []string{"read"}}

	first, err := f.svc.FindOrSave(ctx, c, token.SaveOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, first.AccessToken)
	assert.Empty(t, first.RefreshToken)

	second, err := f.svc.FindOrSave(ctx, c, token.SaveOptions{IncludeRefreshToken: true})
	require.NoError(t, err)
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.NotEmpty(t, second.RefreshToken)

	require.NoError(t, f.svc.Revoke(ctx, second.AccessToken, token.GetOptions{}))
	third, err := f.svc.FindOrSave(ctx, c, token.SaveOptions{IncludeRefreshToken: true})
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, third.RefreshToken)
	assert.NotEqual(t, second.AccessToken, third.AccessToken)
	assert.NotEmpty(t, third.AccessToken)
}

func TestGetTokenObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := token.Criteria{ConsumerID: "app1", AuthenticatedUserID: "u1", RedirectURI: "https://example.com/cb", Scopes: []string{"b", "a"}}

	pair, err := f.svc.Save(ctx, c, token.SaveOptions{RefreshTokenOnly: true})
	require.NoError(t, err)
	assert.Empty(t, pair.AccessToken)

	obj, err := f.svc.GetTokenObject(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, "app1", obj.ConsumerID)
	assert.Equal(t, "https://example.com/cb", obj.RedirectURI)
	assert.Equal(t, []string{"a", "b"}, obj.Scopes)
}

func TestGetTokensByConsumer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Save(ctx, token.Criteria{ConsumerID: "u1"}, token.SaveOptions{})
		require.NoError(t, err)
	}
	_, err := f.svc.Save(ctx, token.Criteria{ConsumerID: "u2"}, token.SaveOptions{})
	require.NoError(t, err)

	tokens, err := f.svc.GetTokensByConsumer(ctx, "u1", token.TypeAccess)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
	for _, tok := range tokens {
		assert.True(t, strings.HasPrefix(tok.External(), tok.ID+"|"))
	}

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	tokens, err = f.svc.GetTokensByConsumer(ctx, "u1", token.TypeAccess)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	index, err := f.store.HGetAll(ctx, keys.ConsumerTokens("access_token", "u1"))
	require.NoError(t, err)
	assert.True(t, index.Empty())
}
