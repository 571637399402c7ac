package credentialinfra

import (
	"context"
	"sort"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/credential"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

const (
	fieldActive     = "isActive"
	fieldConsumerID = "consumerId"
	fieldScopes     = "scopes"
	fieldCreatedAt  = "createdAt"
	fieldUpdatedAt  = "updatedAt"
)

// KVCredentialRepository stores a credential as a hash under
// {ns}-{type}:{id}. Key-bound consumers also get a set of key ids under
// {ns}-{type}:{consumerId}.
type KVCredentialRepository struct {
	store kvx.Store
	keys  keyspace.Keys
}

var _ credential.Repository = (*KVCredentialRepository)(nil)

// NewKVCredentialRepository stores credentials in store under keys.
func NewKVCredentialRepository(store kvx.Store, keys keyspace.Keys) *KVCredentialRepository {
	return &KVCredentialRepository{store: store, keys: keys}
}

// Save replaces the whole hash when replaced is given, so nothing of the old
// record survives: properties, scopes and scope associations included.
func (r *KVCredentialRepository) Save(ctx context.Context, t *credential.Type, c *credential.Credential, replaced *credential.Credential) error {
	key := r.keys.Credential(t.Name, c.ID)

	b := r.store.Batch()
	if replaced != nil {
		b.Del(key)
		for _, s := range replaced.Scopes {
			b.HDel(r.keys.ScopeCredentials(s), key)
		}
		if t.Policy.AllowsMultiple() && replaced.ConsumerID != c.ConsumerID {
			b.SRem(r.keys.Credential(t.Name, replaced.ConsumerID), c.ID)
		}
	}
	b.HSet(key, encode(t, c))
	if t.Policy.AllowsMultiple() {
		b.SAdd(r.keys.Credential(t.Name, c.ConsumerID), c.ID)
	}
	r.associate(b, key, c.Scopes)

	_, err := b.Exec(ctx)
	return err
}

// FindByID returns nil when the record does not exist.
func (r *KVCredentialRepository) FindByID(ctx context.Context, t *credential.Type, id string) (*credential.Credential, error) {
	f, err := r.store.HGetAll(ctx, r.keys.Credential(t.Name, id))
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return nil, nil
	}
	return decode(t, id, f), nil
}

func (r *KVCredentialRepository) KeyIDs(ctx context.Context, t *credential.Type, consumerID string) ([]string, error) {
	ids, err := r.store.SMembers(ctx, r.keys.Credential(t.Name, consumerID))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *KVCredentialRepository) UpdateFields(ctx context.Context, t *credential.Type, id string, fields map[string]string, at time.Time) error {
	f := make(kvx.Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f.SetTime(fieldUpdatedAt, at)
	return r.store.HSet(ctx, r.keys.Credential(t.Name, id), f)
}

func (r *KVCredentialRepository) SetActive(ctx context.Context, t *credential.Type, id string, active bool, at time.Time) error {
	f := kvx.Fields{}
	f.SetBool(fieldActive, active)
	f.SetTime(fieldUpdatedAt, at)
	return r.store.HSet(ctx, r.keys.Credential(t.Name, id), f)
}

// SetScopes replaces the stored list and moves the scope associations.
func (r *KVCredentialRepository) SetScopes(ctx context.Context, t *credential.Type, id string, scopes, associate, dissociate []string, at time.Time) error {
	key := r.keys.Credential(t.Name, id)

	f := kvx.Fields{}
	f.SetStrings(fieldScopes, scopes)
	f.SetTime(fieldUpdatedAt, at)

	b := r.store.Batch()
	b.HSet(key, f)
	r.associate(b, key, associate)
	for _, s := range dissociate {
		b.HDel(r.keys.ScopeCredentials(s), key)
	}
	_, err := b.Exec(ctx)
	return err
}

func (r *KVCredentialRepository) Remove(ctx context.Context, t *credential.Type, c *credential.Credential) (kvx.Replies, error) {
	key := r.keys.Credential(t.Name, c.ID)

	b := r.store.Batch()
	b.Del(key)
	if t.Policy.AllowsMultiple() {
		b.SRem(r.keys.Credential(t.Name, c.ConsumerID), c.ID)
	}
	for _, s := range c.Scopes {
		b.HDel(r.keys.ScopeCredentials(s), key)
	}
	return b.Exec(ctx)
}

func (r *KVCredentialRepository) RemoveAll(ctx context.Context, t *credential.Type, consumerID string, ids, scopes []string) (kvx.Replies, error) {
	b := r.store.Batch()
	for _, id := range ids {
		key := r.keys.Credential(t.Name, id)
		b.Del(key)
		for _, s := range scopes {
			b.HDel(r.keys.ScopeCredentials(s), key)
		}
	}
	if t.Policy.AllowsMultiple() {
		b.Del(r.keys.Credential(t.Name, consumerID))
	}
	if b.Len() == 0 {
		return nil, nil
	}
	return b.Exec(ctx)
}

func (r *KVCredentialRepository) associate(b kvx.Batch, credKey string, scopes []string) {
	for _, s := range scopes {
		f := kvx.Fields{}
		f.SetBool(credKey, true)
		b.HSet(r.keys.ScopeCredentials(s), f)
	}
}

func encode(t *credential.Type, c *credential.Credential) kvx.Fields {
	f := make(kvx.Fields, len(c.Properties)+8)
	for k, v := range c.Properties {
		f[k] = v
	}
	f[fieldConsumerID] = c.ConsumerID
	f.SetBool(fieldActive, c.IsActive)
	f.SetTime(fieldCreatedAt, c.CreatedAt)
	f.SetTime(fieldUpdatedAt, c.UpdatedAt)
	if c.Scopes != nil {
		f.SetStrings(fieldScopes, c.Scopes)
	}
	t.Policy.Encode(c, f)
	return f
}

func decode(t *credential.Type, id string, f kvx.Fields) *credential.Credential {
	c := &credential.Credential{
		ID:         id,
		Type:       t.Name,
		ConsumerID: f[fieldConsumerID],
		IsActive:   f.Bool(fieldActive),
		CreatedAt:  f.Time(fieldCreatedAt),
		UpdatedAt:  f.Time(fieldUpdatedAt),
	}
	if f.Has(fieldScopes) {
		c.Scopes = f.Strings(fieldScopes)
	}
	t.Policy.Decode(f, c)

	reserved := map[string]bool{
		fieldActive: true, fieldConsumerID: true, fieldScopes: true,
		fieldCreatedAt: true, fieldUpdatedAt: true,
	}
	for _, k := range t.Policy.Reserved() {
		reserved[k] = true
	}
	for k, v := range f {
		if reserved[k] {
			continue
		}
		if c.Properties == nil {
			c.Properties = make(map[string]string)
		}
		c.Properties[k] = v
	}
	return c
}
