package config

import (
	"context"
	"encoding/json"

	"github.com/Abraxas-365/gatekeep/pkg/fsx"
)

// Property types understood by the schema validator.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// ScopesProperty is the reserved property holding a credential's scopes.
const ScopesProperty = "scopes"

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	// IsMutable defaults to true when omitted.
	IsMutable *bool `json:"isMutable,omitempty"`
}

func (p Property) Mutable() bool {
	return p.IsMutable == nil || *p.IsMutable
}

// Model declares the properties a record may carry.
type Model struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

func (m Model) Declares(name string) bool {
	_, ok := m.Properties[name]
	return ok
}

func (m Model) Requires(name string) bool {
	for _, r := range m.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Credential kinds.
const (
	KindPassword = "password"
	KindKey      = "key"
)

type CredentialModel struct {
	Model
	Kind                 string   `json:"kind"`
	PasswordKey          string   `json:"passwordKey,omitempty"`
	AutoGeneratePassword bool     `json:"autoGeneratePassword,omitempty"`
	DefaultScopes        []string `json:"defaultScopes,omitempty"`
}

type Models struct {
	Credentials  map[string]CredentialModel `json:"credentials"`
	Users        Model                      `json:"users"`
	Applications Model                      `json:"applications"`
}

func immutable() *bool {
	f := false
	return &f
}

// DefaultModels mirrors the stock gateway models.
func DefaultModels() Models {
	scopes := Property{Type: TypeArray, Description: "Authorization scopes"}
	return Models{
		Credentials: map[string]CredentialModel{
			"basic-auth": {
				Kind:                 KindPassword,
				PasswordKey:          "password",
				AutoGeneratePassword: true,
				Model: Model{Properties: map[string]Property{
					"password":     {Type: TypeString},
					ScopesProperty: scopes,
				}},
			},
			"oauth2": {
				Kind:                 KindPassword,
				PasswordKey:          "secret",
				AutoGeneratePassword: true,
				Model: Model{Properties: map[string]Property{
					"secret":       {Type: TypeString},
					ScopesProperty: scopes,
				}},
			},
			"key-auth": {
				Kind: KindKey,
				Model: Model{Properties: map[string]Property{
					"keyId":        {Type: TypeString, IsMutable: immutable()},
					"keySecret":    {Type: TypeString},
					ScopesProperty: scopes,
				}},
			},
			"jwt": {
				Kind: KindKey,
				Model: Model{Properties: map[string]Property{
					"keyId":        {Type: TypeString, IsMutable: immutable()},
					"keySecret":    {Type: TypeString},
					ScopesProperty: scopes,
				}},
			},
		},
		Users: Model{
			Properties: map[string]Property{
				"username":    {Type: TypeString, IsMutable: immutable()},
				"firstname":   {Type: TypeString},
				"lastname":    {Type: TypeString},
				"email":       {Type: TypeString},
				"redirectUri": {Type: TypeString},
			},
			Required: []string{"username", "firstname", "lastname"},
		},
		Applications: Model{
			Properties: map[string]Property{
				"name":        {Type: TypeString},
				"redirectUri": {Type: TypeString},
			},
			Required: []string{"name"},
		},
	}
}

// LoadModels starts from DefaultModels and replaces each section with
// credentials.json, users.json or applications.json from dir when present.
func LoadModels(ctx context.Context, r fsx.PathReader, dir string) (Models, error) {
	models := DefaultModels()
	if dir == "" {
		return models, nil
	}

	sections := []struct {
		file   string
		target any
	}{
		{"credentials.json", &models.Credentials},
		{"users.json", &models.Users},
		{"applications.json", &models.Applications},
	}
	for _, s := range sections {
		path := r.Join(dir, s.file)
		ok, err := r.Exists(ctx, path)
		if err != nil {
			return Models{}, ErrRegistry.NewWithCause(CodeModelsLoad, err).WithDetail("file", path)
		}
		if !ok {
			continue
		}
		data, err := r.ReadFile(ctx, path)
		if err != nil {
			return Models{}, ErrRegistry.NewWithCause(CodeModelsLoad, err).WithDetail("file", path)
		}
		if err := json.Unmarshal(data, s.target); err != nil {
			return Models{}, ErrRegistry.NewWithCause(CodeModelsLoad, err).WithDetail("file", path)
		}
	}
	return models, models.Validate()
}

// Validate checks that every credential model is internally consistent.
func (m Models) Validate() error {
	for name, cm := range m.Credentials {
		bad := func(reason string) error {
			return ErrRegistry.New(CodeModelsLoad).WithDetail("credential", name).WithDetail("reason", reason)
		}
		switch cm.Kind {
		case KindPassword:
			if cm.PasswordKey == "" {
				return bad("password credentials need a passwordKey")
			}
			if !cm.Declares(cm.PasswordKey) {
				return bad("passwordKey must be a declared property")
			}
		case KindKey:
		default:
			return bad("kind must be password or key")
		}
	}
	return nil
}
