package userinfra

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

const (
	fieldID        = "id"
	fieldUsername  = "username"
	fieldActive    = "isActive"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

type KVUserRepository struct {
	store kvx.Store
	keys  keyspace.Keys
}

var _ user.Repository = (*KVUserRepository)(nil)

// NewKVUserRepository returns a user repository over store.
func NewKVUserRepository(store kvx.Store, keys keyspace.Keys) *KVUserRepository {
	return &KVUserRepository{store: store, keys: keys}
}

func (r *KVUserRepository) Save(ctx context.Context, u *user.User) (kvx.Replies, error) {
	b := r.store.Batch()
	b.HSet(r.keys.User(u.ID.String()), encode(u))
	b.SAdd(r.keys.Username(u.Username), u.ID.String())
	return b.Exec(ctx)
}

func (r *KVUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	f, err := r.store.HGetAll(ctx, r.keys.User(id.String()))
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return nil, nil
	}
	if !f.Has(fieldID) {
		f[fieldID] = id.String()
	}
	return decode(f), nil
}

func (r *KVUserRepository) IDByUsername(ctx context.Context, username string) (kernel.UserID, error) {
	ids, err := r.store.SMembers(ctx, r.keys.Username(username))
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return kernel.NewUserID(ids[0]), nil
}

func (r *KVUserRepository) Update(ctx context.Context, id kernel.UserID, fields kvx.Fields, at time.Time) error {
	f := fields.Clone()
	f.SetTime(fieldUpdatedAt, at)
	return r.store.HSet(ctx, r.keys.User(id.String()), f)
}

func (r *KVUserRepository) SetActive(ctx context.Context, id kernel.UserID, active bool, at time.Time) error {
	f := kvx.Fields{}
	f.SetBool(fieldActive, active)
	f.SetTime(fieldUpdatedAt, at)
	return r.store.HSet(ctx, r.keys.User(id.String()), f)
}

func (r *KVUserRepository) Remove(ctx context.Context, u *user.User) (kvx.Replies, error) {
	b := r.store.Batch()
	b.Del(r.keys.User(u.ID.String()))
	b.SRem(r.keys.Username(u.Username), u.ID.String())
	return b.Exec(ctx)
}

// List walks {ns}-user:* one SCAN page at a time. Keys that vanish between
// the scan and the read are skipped.
func (r *KVUserRepository) List(ctx context.Context, cursor uint64, count int64) (user.Page, error) {
	keys, next, err := r.store.Scan(ctx, cursor, r.keys.UserPattern(), count)
	if err != nil {
		return user.Page{}, err
	}
	prefix := strings.TrimSuffix(r.keys.UserPattern(), "*")

	users := make([]*user.User, 0, len(keys))
	for _, k := range keys {
		f, err := r.store.HGetAll(ctx, k)
		if err != nil {
			return user.Page{}, err
		}
		if f.Empty() {
			continue
		}
		if !f.Has(fieldID) {
			f[fieldID] = strings.TrimPrefix(k, prefix)
		}
		users = append(users, decode(f))
	}
	return kernel.NewCursorPage(users, next), nil
}

func encode(u *user.User) kvx.Fields {
	f := make(kvx.Fields, len(u.Properties)+5)
	for k, v := range u.Properties {
		f[k] = v
	}
	f[fieldID] = u.ID.String()
	f[fieldUsername] = u.Username
	f.SetBool(fieldActive, u.IsActive)
	f.SetTime(fieldCreatedAt, u.CreatedAt)
	f.SetTime(fieldUpdatedAt, u.UpdatedAt)
	return f
}

func decode(f kvx.Fields) *user.User {
	u := &user.User{
		ID:        kernel.NewUserID(f[fieldID]),
		Username:  f[fieldUsername],
		IsActive:  f.Bool(fieldActive),
		CreatedAt: f.Time(fieldCreatedAt),
		UpdatedAt: f.Time(fieldUpdatedAt),
	}
	for k, v := range f {
		switch k {
		case fieldID, fieldUsername, fieldActive, fieldCreatedAt, fieldUpdatedAt:
			continue
		}
		if u.Properties == nil {
			u.Properties = make(map[string]string)
		}
		u.Properties[k] = v
	}
	return u
}
