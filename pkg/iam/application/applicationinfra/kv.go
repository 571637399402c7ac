package applicationinfra

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/application"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

const (
	fieldID        = "id"
	fieldName      = "name"
	fieldUserID    = "userId"
	fieldActive    = "isActive"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

type KVApplicationRepository struct {
	store kvx.Store
	keys  keyspace.Keys
}

var _ application.Repository = (*KVApplicationRepository)(nil)

// NewKVApplicationRepository returns an application repository over store.
func NewKVApplicationRepository(store kvx.Store, keys keyspace.Keys) *KVApplicationRepository {
	return &KVApplicationRepository{store: store, keys: keys}
}

func (r *KVApplicationRepository) Save(ctx context.Context, a *application.Application) (kvx.Replies, error) {
	id := a.ID.String()
	b := r.store.Batch()
	b.HSet(r.keys.Application(id), encode(a))
	b.SAdd(r.keys.UserApplications(a.UserID.String()), id)
	b.SAdd(r.keys.ApplicationName(a.Name), id)
	return b.Exec(ctx)
}

func (r *KVApplicationRepository) FindByID(ctx context.Context, id kernel.ApplicationID) (*application.Application, error) {
	f, err := r.store.HGetAll(ctx, r.keys.Application(id.String()))
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

func (r *KVApplicationRepository) IDsByName(ctx context.Context, name string) ([]kernel.ApplicationID, error) {
	return r.members(ctx, r.keys.ApplicationName(name))
}

func (r *KVApplicationRepository) IDsByUser(ctx context.Context, userID kernel.UserID) ([]kernel.ApplicationID, error) {
	return r.members(ctx, r.keys.UserApplications(userID.String()))
}

func (r *KVApplicationRepository) members(ctx context.Context, key string) ([]kernel.ApplicationID, error) {
	raw, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	ids := make([]kernel.ApplicationID, len(raw))
	for i, m := range raw {
		ids[i] = kernel.NewApplicationID(m)
	}
	return ids, nil
}

func (r *KVApplicationRepository) Update(ctx context.Context, id kernel.ApplicationID, fields kvx.Fields, at time.Time) error {
	f := fields.Clone()
	f.SetTime(fieldUpdatedAt, at)
	return r.store.HSet(ctx, r.keys.Application(id.String()), f)
}

func (r *KVApplicationRepository) Rename(ctx context.Context, a *application.Application, name string, at time.Time) (kvx.Replies, error) {
	id := a.ID.String()
	f := kvx.Fields{fieldName: name}
	f.SetTime(fieldUpdatedAt, at)

	b := r.store.Batch()
	b.HSet(r.keys.Application(id), f)
	b.SRem(r.keys.ApplicationName(a.Name), id)
	b.SAdd(r.keys.ApplicationName(name), id)
	return b.Exec(ctx)
}

func (r *KVApplicationRepository) SetActive(ctx context.Context, id kernel.ApplicationID, active bool, at time.Time) error {
	f := kvx.Fields{}
	f.SetBool(fieldActive, active)
	f.SetTime(fieldUpdatedAt, at)
	return r.store.HSet(ctx, r.keys.Application(id.String()), f)
}

func (r *KVApplicationRepository) Remove(ctx context.Context, a *application.Application) (kvx.Replies, error) {
	id := a.ID.String()
	b := r.store.Batch()
	b.Del(r.keys.Application(id))
	b.SRem(r.keys.UserApplications(a.UserID.String()), id)
	b.SRem(r.keys.ApplicationName(a.Name), id)
	return b.Exec(ctx)
}

func (r *KVApplicationRepository) List(ctx context.Context, cursor uint64, count int64) (application.Page, error) {
	keys, next, err := r.store.Scan(ctx, cursor, r.keys.ApplicationPattern(), count)
	if err != nil {
		return application.Page{}, err
	}
	prefix := strings.TrimSuffix(r.keys.ApplicationPattern(), "*")

	apps := make([]*application.Application, 0, len(keys))
	for _, k := range keys {
		f, err := r.store.HGetAll(ctx, k)
		if err != nil {
			return application.Page{}, err
		}
		if f.Empty() {
			continue
		}
		if !f.Has(fieldID) {
			f[fieldID] = strings.TrimPrefix(k, prefix)
		}
		apps = append(apps, decode(f))
	}
	return kernel.NewCursorPage(apps, next), nil
}

func encode(a *application.Application) kvx.Fields {
	f := make(kvx.Fields, len(a.Properties)+6)
	for k, v := range a.Properties {
		f[k] = v
	}
	f[fieldID] = a.ID.String()
	f[fieldName] = a.Name
	f[fieldUserID] = a.UserID.String()
	f.SetBool(fieldActive, a.IsActive)
	f.SetTime(fieldCreatedAt, a.CreatedAt)
	f.SetTime(fieldUpdatedAt, a.UpdatedAt)
	return f
}

func decode(f kvx.Fields) *application.Application {
	a := &application.Application{
		ID:        kernel.NewApplicationID(f[fieldID]),
		Name:      f[fieldName],
		UserID:    kernel.NewUserID(f[fieldUserID]),
		IsActive:  f.Bool(fieldActive),
		CreatedAt: f.Time(fieldCreatedAt),
		UpdatedAt: f.Time(fieldUpdatedAt),
	}
	for k, v := range f {
		switch k {
		case fieldID, fieldName, fieldUserID, fieldActive, fieldCreatedAt, fieldUpdatedAt:
			continue
		}
		if a.Properties == nil {
			a.Properties = make(map[string]string)
		}
		a.Properties[k] = v
	}
	return a
}
