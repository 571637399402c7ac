package credentialsrv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential/credentialinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope/scopeinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope/scopesrv"
	"github.com/Abraxas-365/gatekeep/pkg/kvx/kvxmemory"
	"github.com/Abraxas-365/gatekeep/pkg/schemax"
)

var keys = keyspace.New("EG")

type fixture struct {
	store  *kvxmemory.Store
	scopes *scopesrv.ScopeService
	svc    *CredentialService
	hasher cryptox.PasswordHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, config.DefaultModels().Credentials)
}

func newFixtureWith(t *testing.T, models map[string]config.CredentialModel) *fixture {
	t.Helper()
	store := kvxmemory.New()
	hasher := cryptox.NewBcryptHasher(bcrypt.MinCost)
	types, err := credential.NewTypes(models, hasher, cryptox.NewCompactID)
	require.NoError(t, err)
	v := schemax.New()
	require.NoError(t, RegisterSchemas(v, types))

	scopes := scopesrv.NewScopeService(scopeinfra.NewKVScopeRepository(store, keys), nil)
	svc := NewCredentialService(credentialinfra.NewKVCredentialRepository(store, keys), types, scopes, v, nil)
	return &fixture{store: store, scopes: scopes, svc: svc, hasher: hasher}
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var e *errx.Error
	require.True(t, errx.As(err, &e), "expected errx.Error, got %v", err)
	return e.Code
}

func TestInsertPasswordCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.scopes.Declare(ctx, "read"))

	c, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw", "scopes": []string{"read"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", c.ID)
	assert.True(t, c.IsActive)
	assert.Equal(t, []string{"read"}, c.Scopes)
	assert.Empty(t, c.Secret, "supplied passwords are never echoed")

	stored, err := f.svc.GetCredential(ctx, "u1", "basic-auth", credential.GetOptions{IncludeSecret: true})
	require.NoError(t, err)
	ok, err := f.hasher.Compare(stored.Secret, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	hidden, err := f.svc.GetCredential(ctx, "u1", "basic-auth", credential.GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, hidden.Secret)

	assoc, err := f.store.HGetAll(ctx, keys.ScopeCredentials("read"))
	require.NoError(t, err)
	assert.True(t, assoc.Has(keys.Credential("basic-auth", "u1")))
}

func TestInsertGeneratesPasswordOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.InsertCredential(ctx, "u1", "oauth2", nil)
	require.NoError(t, err)
	require.NotEmpty(t, c.Secret)
	assert.Nil(t, c.Scopes)

	stored, err := f.svc.GetCredential(ctx, "u1", "oauth2", credential.GetOptions{IncludeSecret: true})
	require.NoError(t, err)
	assert.NotEqual(t, c.Secret, stored.Secret)
	ok, _ := f.hasher.Compare(stored.Secret, c.Secret)
	assert.True(t, ok)
}

func TestInsertPasswordConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw"})
	require.NoError(t, err)

	_, err = f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw2"})
	assert.Equal(t, credential.CodeAlreadyExists.Code, codeOf(t, err))
	assert.True(t, errx.IsType(err, errx.TypeConflict))

	_, err = f.svc.InsertCredential(ctx, "u2", "basic-auth", map[string]any{"password": "pw"})
	assert.NoError(t, err)

	require.NoError(t, f.svc.DeactivateCredential(ctx, "u1", "basic-auth"))
	_, err = f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw3"})
	assert.NoError(t, err, "an inactive credential can be replaced")
}

func TestReinsertReplacesInactiveRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.scopes.Declare(ctx, "admin"))
	credKey := keys.Credential("basic-auth", "u1")

	_, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw", "scopes": []string{"admin"}})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeactivateCredential(ctx, "u1", "basic-auth"))

	c, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw2"})
	require.NoError(t, err)
	assert.Empty(t, c.Scopes)

	stored, err := f.svc.GetCredential(ctx, "u1", "basic-auth", credential.GetOptions{IncludeSecret: true})
	require.NoError(t, err)
	assert.Empty(t, stored.Scopes, "the new record does not inherit the old scopes")
	assert.True(t, stored.IsActive)
	ok, _ := f.hasher.Compare(stored.Secret, "pw2")
	assert.True(t, ok)

	raw, _ := f.store.HGetAll(ctx, credKey)
	assert.False(t, raw.Has("scopes"))
	assoc, _ := f.store.HGetAll(ctx, keys.ScopeCredentials("admin"))
	assert.False(t, assoc.Has(credKey))
}

func TestInsertRejectsKeyIDInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owned, err := f.svc.InsertCredential(ctx, "alice", "key-auth", map[string]any{"keyId": "shared", "keySecret": "s1"})
	require.NoError(t, err)

	_, err = f.svc.InsertCredential(ctx, "mallory", "key-auth", map[string]any{"keyId": "shared", "keySecret": "s2"})
	assert.Equal(t, credential.CodeAlreadyExists.Code, codeOf(t, err))

	got, err := f.svc.GetCredential(ctx, "shared", "key-auth", credential.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ConsumerID)
	assert.Equal(t, owned.KeySecret, got.KeySecret)

	mine, err := f.svc.GetCredentials(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestScopeOperationsNeedScopedType(t *testing.T) {
	models := config.DefaultModels().Credentials
	models["hmac"] = config.CredentialModel{
		Kind: config.KindKey,
		Model: config.Model{Properties: map[string]config.Property{
			"keyId":     {Type: config.TypeString},
			"keySecret": {Type: config.TypeString},
		}},
	}
	f := newFixtureWith(t, models)
	ctx := context.Background()
	require.NoError(t, f.scopes.Declare(ctx, "read"))

	c, err := f.svc.InsertCredential(ctx, "a1", "hmac", nil)
	require.NoError(t, err)
	assert.Nil(t, c.Scopes)

	err = f.svc.AddScopesToCredential(ctx, c.ID, "hmac", []string{"read"})
	assert.Equal(t, credential.CodeInvalidProperty.Code, codeOf(t, err))
	err = f.svc.SetScopesForCredential(ctx, c.ID, "hmac", []string{"read"})
	assert.Equal(t, credential.CodeInvalidProperty.Code, codeOf(t, err))
	err = f.svc.RemoveScopesFromCredential(ctx, c.ID, "hmac", []string{"read"})
	assert.Equal(t, credential.CodeInvalidProperty.Code, codeOf(t, err))

	raw, _ := f.store.HGetAll(ctx, keys.Credential("hmac", c.ID))
	assert.False(t, raw.Has("scopes"))
}

func TestInsertKeyCredentialsAreUnbounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 4
	ids := map[string]bool{}
	for range n {
		c, err := f.svc.InsertCredential(ctx, "app1", "key-auth", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, c.KeyID)
		assert.NotEmpty(t, c.KeySecret)
		assert.Equal(t, "app1", c.ConsumerID)
		ids[c.ID] = true
	}
	assert.Len(t, ids, n)

	_, err := f.svc.InsertCredential(ctx, "app1", "basic-auth", map[string]any{"password": "pw"})
	require.NoError(t, err)

	all, err := f.svc.GetCredentials(ctx, "app1")
	require.NoError(t, err)
	assert.Len(t, all, n+1)
	for _, c := range all {
		assert.Empty(t, c.Secret)
	}
}

func TestInsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertCredential(ctx, "", "basic-auth", nil)
	assert.Equal(t, credential.CodeInvalidCredential.Code, codeOf(t, err))

	_, err = f.svc.InsertCredential(ctx, "u1", "saml", nil)
	assert.Equal(t, credential.CodeInvalidType.Code, codeOf(t, err))

	_, err = f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"nickname": "x"})
	assert.Equal(t, credential.CodeInvalidProperties.Code, codeOf(t, err))

	_, err = f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"scopes": []string{"ghost"}})
	assert.Equal(t, scope.CodeScopeNotFound.Code, codeOf(t, err))
}

func TestScopeResolutionDefaultsAndRequired(t *testing.T) {
	ctx := context.Background()
	models := config.DefaultModels().Credentials
	withDefault := models["key-auth"]
	withDefault.DefaultScopes = []string{"read"}
	models["key-auth"] = withDefault
	required := models["jwt"]
	required.Required = []string{config.ScopesProperty}
	models["jwt"] = required

	store := kvxmemory.New()
	types, err := credential.NewTypes(models, cryptox.NewBcryptHasher(bcrypt.MinCost), cryptox.NewCompactID)
	require.NoError(t, err)
	v := schemax.New()
	require.NoError(t, RegisterSchemas(v, types))
	scopes := scopesrv.NewScopeService(scopeinfra.NewKVScopeRepository(store, keys), nil)
	svc := NewCredentialService(credentialinfra.NewKVCredentialRepository(store, keys), types, scopes, v, nil)

	c, err := svc.InsertCredential(ctx, "a1", "key-auth", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, c.Scopes)

	_, err = svc.InsertCredential(ctx, "a1", "jwt", nil)
	assert.Equal(t, credential.CodeScopesRequired.Code, codeOf(t, err))
}

func TestUpdateCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.InsertCredential(ctx, "a1", "key-auth", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateCredential(ctx, c.ID, "key-auth", map[string]any{"keySecret": "rotated"}))
	got, err := f.svc.GetCredential(ctx, c.ID, "key-auth", credential.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.KeySecret)

	err = f.svc.UpdateCredential(ctx, c.ID, "key-auth", map[string]any{"keyId": "other"})
	assert.Equal(t, credential.CodeImmutable.Code, codeOf(t, err))

	err = f.svc.UpdateCredential(ctx, c.ID, "key-auth", map[string]any{"keySecret": 42})
	assert.Equal(t, credential.CodeInvalidProperty.Code, codeOf(t, err))

	err = f.svc.UpdateCredential(ctx, c.ID, "key-auth", map[string]any{"scopes": "read"})
	assert.Equal(t, credential.CodeInvalidProperties.Code, codeOf(t, err))

	assert.NoError(t, f.svc.UpdateCredential(ctx, c.ID, "key-auth", map[string]any{}))

	err = f.svc.UpdateCredential(ctx, "missing", "key-auth", map[string]any{"keySecret": "x"})
	assert.True(t, errx.IsType(err, errx.TypeNotFound))
}

func TestUpdatePasswordIsHashed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "old"})
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateCredential(ctx, "u1", "basic-auth", map[string]any{"password": "new"}))

	stored, err := f.svc.GetCredential(ctx, "u1", "basic-auth", credential.GetOptions{IncludeSecret: true})
	require.NoError(t, err)
	ok, _ := f.hasher.Compare(stored.Secret, "new")
	assert.True(t, ok)
}

func TestActivateDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeactivateCredential(ctx, "u1", "basic-auth"))
	c, _ := f.svc.GetCredential(ctx, "u1", "basic-auth", credential.GetOptions{})
	assert.False(t, c.IsActive)

	require.NoError(t, f.svc.ActivateCredential(ctx, "u1", "basic-auth"))
	c, _ = f.svc.GetCredential(ctx, "u1", "basic-auth", credential.GetOptions{})
	assert.True(t, c.IsActive)

	err = f.svc.ActivateCredential(ctx, "u2", "basic-auth")
	assert.Equal(t, credential.CodeNotFound.Code, codeOf(t, err))
}

func TestScopeOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.scopes.Declare(ctx, "read", "write", "admin"))

	c, err := f.svc.InsertCredential(ctx, "a1", "key-auth", map[string]any{"scopes": []string{"read"}})
	require.NoError(t, err)
	credKey := keys.Credential("key-auth", c.ID)

	require.NoError(t, f.svc.AddScopesToCredential(ctx, c.ID, "key-auth", []string{"write", "read"}))
	got, _ := f.svc.GetCredential(ctx, c.ID, "key-auth", credential.GetOptions{})
	assert.Equal(t, []string{"read", "write"}, got.Scopes)

	err = f.svc.AddScopesToCredential(ctx, c.ID, "key-auth", []string{"ghost"})
	assert.Equal(t, scope.CodeScopeNotFound.Code, codeOf(t, err))

	require.NoError(t, f.svc.RemoveScopesFromCredential(ctx, c.ID, "key-auth", []string{"read"}))
	got, _ = f.svc.GetCredential(ctx, c.ID, "key-auth", credential.GetOptions{})
	assert.Equal(t, []string{"write"}, got.Scopes)
	assoc, _ := f.store.HGetAll(ctx, keys.ScopeCredentials("read"))
	assert.False(t, assoc.Has(credKey))

	require.NoError(t, f.svc.SetScopesForCredential(ctx, c.ID, "key-auth", []string{"admin"}))
	got, _ = f.svc.GetCredential(ctx, c.ID, "key-auth", credential.GetOptions{})
	assert.Equal(t, []string{"admin"}, got.Scopes)
	assoc, _ = f.store.HGetAll(ctx, keys.ScopeCredentials("admin"))
	assert.True(t, assoc.Has(credKey))
	assoc, _ = f.store.HGetAll(ctx, keys.ScopeCredentials("write"))
	assert.False(t, assoc.Has(credKey))
}

func TestRemoveCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.scopes.Declare(ctx, "read"))

	c, err := f.svc.InsertCredential(ctx, "a1", "jwt", map[string]any{"scopes": []string{"read"}})
	require.NoError(t, err)

	removed, err := f.svc.RemoveCredential(ctx, c.ID, "jwt")
	require.NoError(t, err)
	assert.True(t, removed)

	members, _ := f.store.SMembers(ctx, keys.Credential("jwt", "a1"))
	assert.Empty(t, members)
	assoc, _ := f.store.HGetAll(ctx, keys.ScopeCredentials("read"))
	assert.True(t, assoc.Empty())

	removed, err = f.svc.RemoveCredential(ctx, c.ID, "jwt")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveAllCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.scopes.Declare(ctx, "read"))

	_, err := f.svc.InsertCredential(ctx, "u1", "basic-auth", map[string]any{"password": "pw", "scopes": []string{"read"}})
	require.NoError(t, err)
	for range 2 {
		_, err := f.svc.InsertCredential(ctx, "u1", "key-auth", map[string]any{"scopes": []string{"read"}})
		require.NoError(t, err)
	}
	_, err = f.svc.InsertCredential(ctx, "u2", "key-auth", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveAllCredentials(ctx, "u1"))
	all, err := f.svc.GetCredentials(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, all)

	assoc, _ := f.store.HGetAll(ctx, keys.ScopeCredentials("read"))
	assert.True(t, assoc.Empty())

	others, _ := f.svc.GetCredentials(ctx, "u2")
	assert.Len(t, others, 1)

	require.NoError(t, f.svc.RemoveAllCredentials(ctx, "u1"), "re-running is a no-op")
}

func TestGetCredentialsSkipsStaleKeyIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertCredential(ctx, "a1", "key-auth", nil)
	require.NoError(t, err)
	_, err = f.store.SAdd(ctx, keys.Credential("key-auth", "a1"), "vanished")
	require.NoError(t, err)

	all, err := f.svc.GetCredentials(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoredRecordShape(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.InsertCredential(ctx, "a1", "key-auth", nil)
	require.NoError(t, err)

	raw, err := f.store.HGetAll(ctx, keys.Credential("key-auth", c.ID))
	require.NoError(t, err)
	assert.Equal(t, "true", raw["isActive"])
	assert.Equal(t, "a1", raw["consumerId"])
	assert.Equal(t, c.KeySecret, raw["keySecret"])
	assert.False(t, raw.Has("scopes"))
}
