package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

func newTypes(t *testing.T) *Types {
	t.Helper()
	ids := []string{"id-1", "id-2", "id-3"}
	next := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ts, err := NewTypes(config.DefaultModels().Credentials, cryptox.NewBcryptHasher(bcrypt.MinCost), next)
	require.NoError(t, err)
	return ts
}

func TestNewTypesSelectsPolicies(t *testing.T) {
	ts := newTypes(t)

	names := make([]string, 0)
	for _, typ := range ts.All() {
		names = append(names, typ.Name)
	}
	assert.Equal(t, []string{"basic-auth", "jwt", "key-auth", "oauth2"}, names)

	basic, ok := ts.Lookup("basic-auth")
	require.True(t, ok)
	assert.Equal(t, KindPassword, basic.Policy.Kind())
	assert.False(t, basic.Policy.AllowsMultiple())
	assert.True(t, basic.HasScopes())

	key, ok := ts.Lookup("key-auth")
	require.True(t, ok)
	assert.Equal(t, KindKey, key.Policy.Kind())
	assert.True(t, key.Policy.AllowsMultiple())

	_, ok = ts.Lookup("saml")
	assert.False(t, ok)
}

func TestNewTypesRejectsUnknownKind(t *testing.T) {
	_, err := NewTypes(map[string]config.CredentialModel{"x": {Kind: "magic"}}, cryptox.NewBcryptHasher(bcrypt.MinCost), cryptox.NewCompactID)
	assert.True(t, errx.IsType(err, errx.TypeValidation))
}

func TestPasswordPolicyPrepare(t *testing.T) {
	ts := newTypes(t)
	basic, _ := ts.Lookup("basic-auth")
	hasher := cryptox.NewBcryptHasher(bcrypt.MinCost)

	c := &Credential{ConsumerID: "u1"}
	plain, err := basic.Policy.Prepare(c, map[string]any{"password": "s3cret"})
	require.NoError(t, err)
	assert.Empty(t, plain)
	assert.Equal(t, "u1", c.ID)
	ok, err := hasher.Compare(c.Secret, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	c = &Credential{ConsumerID: "u1"}
	plain, err = basic.Policy.Prepare(c, nil)
	require.NoError(t, err)
	require.NotEmpty(t, plain)
	ok, _ = hasher.Compare(c.Secret, plain)
	assert.True(t, ok)
}

func TestPasswordPolicyWithoutAutoGenerate(t *testing.T) {
	models := map[string]config.CredentialModel{
		"basic-auth": {Kind: config.KindPassword, PasswordKey: "password"},
	}
	ts, err := NewTypes(models, cryptox.NewBcryptHasher(bcrypt.MinCost), cryptox.NewCompactID)
	require.NoError(t, err)
	basic, _ := ts.Lookup("basic-auth")

	_, err = basic.Policy.Prepare(&Credential{ConsumerID: "u1"}, map[string]any{})
	var e *errx.Error
	require.True(t, errx.As(err, &e))
	assert.Equal(t, CodePasswordRequired.Code, e.Code)
	assert.Equal(t, "password is required", e.Message)
}

func TestKeyPolicyPrepareAndCodec(t *testing.T) {
	ts := newTypes(t)
	key, _ := ts.Lookup("key-auth")

	c := &Credential{ConsumerID: "u1"}
	_, err := key.Policy.Prepare(c, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "id-1", c.KeyID)
	assert.Equal(t, "id-2", c.KeySecret)
	assert.Equal(t, c.KeyID, c.ID)

	c = &Credential{ConsumerID: "u1"}
	_, err = key.Policy.Prepare(c, map[string]any{"keyId": "mine", "keySecret": "shh"})
	require.NoError(t, err)
	assert.Equal(t, "mine", c.ID)

	f := kvx.Fields{}
	key.Policy.Encode(c, f)
	assert.Equal(t, kvx.Fields{"keyId": "mine", "keySecret": "shh"}, f)

	var back Credential
	key.Policy.Decode(f, &back)
	assert.Equal(t, "shh", back.KeySecret)
}

func TestSecretHidden(t *testing.T) {
	c := &Credential{ID: "u1", Secret: "hash"}
	hidden := c.SecretHidden()
	assert.Empty(t, hidden.Secret)
	assert.Equal(t, "hash", c.Secret)
}
