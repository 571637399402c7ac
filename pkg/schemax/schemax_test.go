package schemax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/gatekeep/pkg/config"
)

func TestValidateUserModel(t *testing.T) {
	v := New()
	require.NoError(t, v.Register("users", config.DefaultModels().Users))

	ok := v.Validate("users", map[string]any{"username": "irfan", "firstname": "I", "lastname": "B"})
	assert.True(t, ok.IsValid, ok.Error)

	missing := v.Validate("users", map[string]any{"username": "irfan"})
	assert.False(t, missing.IsValid)
	assert.NotEmpty(t, missing.Error)

	extra := v.Validate("users", map[string]any{"username": "irfan", "firstname": "I", "lastname": "B", "age": "3"})
	assert.False(t, extra.IsValid)

	wrongType := v.Validate("users", map[string]any{"username": 7, "firstname": "I", "lastname": "B"})
	assert.False(t, wrongType.IsValid)
}

func TestValidateOmitsProperties(t *testing.T) {
	v := New()
	model := config.DefaultModels().Credentials["basic-auth"].Model
	require.NoError(t, v.Register("basic-auth", model, config.ScopesProperty))

	assert.True(t, v.Validate("basic-auth", map[string]any{"password": "pw"}).IsValid)
	assert.True(t, v.Validate("basic-auth", nil).IsValid)
	assert.False(t, v.Validate("basic-auth", map[string]any{"scopes": []string{"a"}}).IsValid)
}

func TestValidateUnknownRef(t *testing.T) {
	res := New().Validate("nope", map[string]any{})
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Error, "nope")
}
