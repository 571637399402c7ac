package credential

import (
	"sort"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

// Policy is everything that differs between credential kinds: uniqueness,
// the shape of the stored record and how secret material is produced.
type Policy interface {
	Kind() Kind
	// AllowsMultiple reports whether a consumer may hold any number of
	// credentials of the type.
	AllowsMultiple() bool
	// Prepare assigns the record id and secret material of a new
	// credential. It returns the plaintext secret when one was generated.
	Prepare(c *Credential, details map[string]any) (string, error)
	// PrepareUpdate turns an updated property value into its stored form.
	PrepareUpdate(prop, value string) (string, error)
	// Reserved lists the stored fields the policy owns.
	Reserved() []string
	Encode(c *Credential, f kvx.Fields)
	Decode(f kvx.Fields, c *Credential)
}

const (
	fieldKeyID     = "keyId"
	fieldKeySecret = "keySecret"
)

type passwordPolicy struct {
	field        string
	autoGenerate bool
	hasher       cryptox.PasswordHasher
	newSecret    func() string
}

func (p *passwordPolicy) Kind() Kind           { return KindPassword }
func (p *passwordPolicy) AllowsMultiple() bool { return false }
func (p *passwordPolicy) Reserved() []string   { return []string{p.field} }

func (p *passwordPolicy) Prepare(c *Credential, details map[string]any) (string, error) {
	c.ID = c.ConsumerID

	if supplied, _ := details[p.field].(string); supplied != "" {
		hash, err := p.hasher.Hash(supplied)
		if err != nil {
			return "", err
		}
		c.Secret = hash
		return "", nil
	}

	if !p.autoGenerate {
		return "", ErrPasswordRequired(p.field)
	}
	plain := p.newSecret()
	hash, err := p.hasher.Hash(plain)
	if err != nil {
		return "", err
	}
	c.Secret = hash
	return plain, nil
}

func (p *passwordPolicy) PrepareUpdate(prop, value string) (string, error) {
	if prop != p.field {
		return value, nil
	}
	return p.hasher.Hash(value)
}

func (p *passwordPolicy) Encode(c *Credential, f kvx.Fields) {
	f[p.field] = c.Secret
}

func (p *passwordPolicy) Decode(f kvx.Fields, c *Credential) {
	c.Secret = f[p.field]
}

type keyPolicy struct {
	newID func() string
}

func (p *keyPolicy) Kind() Kind           { return KindKey }
func (p *keyPolicy) AllowsMultiple() bool { return true }
func (p *keyPolicy) Reserved() []string   { return []string{fieldKeyID, fieldKeySecret} }

func (p *keyPolicy) Prepare(c *Credential, details map[string]any) (string, error) {
	c.KeyID, _ = details[fieldKeyID].(string)
	if c.KeyID == "" {
		c.KeyID = p.newID()
	}
	c.KeySecret, _ = details[fieldKeySecret].(string)
	if c.KeySecret == "" {
		c.KeySecret = p.newID()
	}
	c.ID = c.KeyID
	return "", nil
}

func (p *keyPolicy) PrepareUpdate(_, value string) (string, error) {
	return value, nil
}

func (p *keyPolicy) Encode(c *Credential, f kvx.Fields) {
	f[fieldKeyID] = c.KeyID
	f[fieldKeySecret] = c.KeySecret
}

func (p *keyPolicy) Decode(f kvx.Fields, c *Credential) {
	c.KeyID = f[fieldKeyID]
	c.KeySecret = f[fieldKeySecret]
}

// Type is a declared credential type with its policy selected once.
type Type struct {
	Name   string
	Model  config.CredentialModel
	Policy Policy
}

// HasScopes reports whether the type declares a scopes property.
func (t *Type) HasScopes() bool {
	return t.Model.Declares(config.ScopesProperty)
}

type Types struct {
	byName map[string]*Type
	names  []string
}

// NewTypes selects a policy for every declared model. newID generates key
// ids and key secrets.
func NewTypes(models map[string]config.CredentialModel, hasher cryptox.PasswordHasher, newID func() string) (*Types, error) {
	ts := &Types{byName: make(map[string]*Type, len(models))}
	for name, m := range models {
		var p Policy
		switch m.Kind {
		case config.KindPassword:
			p = &passwordPolicy{field: m.PasswordKey, autoGenerate: m.AutoGeneratePassword, hasher: hasher, newSecret: cryptox.NewID}
		case config.KindKey:
			p = &keyPolicy{newID: newID}
		default:
			return nil, ErrInvalidType(name).WithDetail("kind", m.Kind)
		}
		ts.byName[name] = &Type{Name: name, Model: m, Policy: p}
		ts.names = append(ts.names, name)
	}
	sort.Strings(ts.names)
	return ts, nil
}

func (ts *Types) Lookup(name string) (*Type, bool) {
	t, ok := ts.byName[name]
	return t, ok
}

// All returns the types sorted by name.
func (ts *Types) All() []*Type {
	out := make([]*Type, len(ts.names))
	for i, n := range ts.names {
		out[i] = ts.byName[n]
	}
	return out
}
