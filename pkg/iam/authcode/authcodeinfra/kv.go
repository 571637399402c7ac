package authcodeinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/authcode"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

const (
	fieldID          = "id"
	fieldConsumerID  = "consumerId"
	fieldUserID      = "userId"
	fieldRedirectURI = "redirectUri"
	fieldScopes      = "scopes"
	fieldExpiresAt   = "expiresAt"
	fieldCreatedAt   = "createdAt"
)

type KVCodeRepository struct {
	store kvx.Store
	keys  keyspace.Keys
}

var _ authcode.Repository = (*KVCodeRepository)(nil)

// NewKVCodeRepository returns a code repository over store.
func NewKVCodeRepository(store kvx.Store, keys keyspace.Keys) *KVCodeRepository {
	return &KVCodeRepository{store: store, keys: keys}
}

func (r *KVCodeRepository) Save(ctx context.Context, c *authcode.Code) error {
	f := kvx.Fields{
		fieldID:         c.ID,
		fieldConsumerID: c.ConsumerID,
		fieldUserID:     c.UserID,
	}
	if c.RedirectURI != "" {
		f[fieldRedirectURI] = c.RedirectURI
	}
	if c.Scopes != nil {
		f.SetStrings(fieldScopes, c.Scopes)
	}
	f.SetMillis(fieldExpiresAt, c.ExpiresAt.UnixMilli())
	f.SetTime(fieldCreatedAt, c.CreatedAt)
	return r.store.HSet(ctx, r.keys.AuthCode(c.ID), f)
}

// Take deletes the code only when every criteria field matches. The bool
// reports whether it was consumed.
func (r *KVCodeRepository) Take(ctx context.Context, criteria authcode.Criteria) (*authcode.Code, bool, error) {
	f, taken, err := r.store.HTakeIfMatch(ctx, r.keys.AuthCode(criteria.ID), want(criteria))
	if err != nil {
		return nil, false, err
	}
	if f.Empty() {
		return nil, false, nil
	}
	return decode(f), taken, nil
}

func (r *KVCodeRepository) Remove(ctx context.Context, id string) error {
	_, err := r.store.Del(ctx, r.keys.AuthCode(id))
	return err
}

func want(c authcode.Criteria) kvx.Fields {
	f := kvx.Fields{fieldID: c.ID}
	if c.ConsumerID != "" {
		f[fieldConsumerID] = c.ConsumerID
	}
	if c.UserID != "" {
		f[fieldUserID] = c.UserID
	}
	if c.RedirectURI != "" {
		f[fieldRedirectURI] = c.RedirectURI
	}
	if c.Scopes != nil {
		f.SetStrings(fieldScopes, c.Scopes)
	}
	return f
}

func decode(f kvx.Fields) *authcode.Code {
	c := &authcode.Code{
		ID:          f[fieldID],
		ConsumerID:  f[fieldConsumerID],
		UserID:      f[fieldUserID],
		RedirectURI: f[fieldRedirectURI],
		Scopes:      f.Strings(fieldScopes),
		CreatedAt:   f.Time(fieldCreatedAt),
	}
	if ms, ok := f.Millis(fieldExpiresAt); ok {
		c.ExpiresAt = time.UnixMilli(ms).UTC()
	}
	return c
}
