package tokeninfra

import (
	"context"
	"strconv"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

const (
	fieldID        = "id"
	fieldSecret    = "tokenEncrypted"
	fieldExpiresAt = "expiresAt"
	fieldCreatedAt = "createdAt"
)

type KVTokenRepository struct {
	store kvx.Store
	keys  keyspace.Keys
}

var _ token.Repository = (*KVTokenRepository)(nil)

// NewKVTokenRepository keeps token records and per-consumer expiry indexes.
func NewKVTokenRepository(store kvx.Store, keys keyspace.Keys) *KVTokenRepository {
	return &KVTokenRepository{store: store, keys: keys}
}

func (r *KVTokenRepository) Save(ctx context.Context, rec *token.Record) (kvx.Replies, error) {
	t := rec.Type.String()
	index := kvx.Fields{}
	index.SetMillis(rec.ID, rec.ExpiresAt.UnixMilli())

	b := r.store.Batch()
	b.HSet(r.keys.Token(t, rec.ID), encode(rec))
	b.HSet(r.keys.ConsumerTokens(t, rec.Criteria.ConsumerID), index)
	return b.Exec(ctx)
}

func (r *KVTokenRepository) FindByID(ctx context.Context, t token.Type, id string) (*token.Record, error) {
	f, err := r.store.HGetAll(ctx, r.keys.Token(t.String(), id))
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return nil, nil
	}
	rec := decode(f)
	rec.ID = id
	rec.Type = t
	return rec, nil
}

func (r *KVTokenRepository) Index(ctx context.Context, t token.Type, consumerID string) (map[string]int64, error) {
	f, err := r.store.HGetAll(ctx, r.keys.ConsumerTokens(t.String(), consumerID))
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(f))
	for id, raw := range f {
		ms, _ := strconv.ParseInt(raw, 10, 64)
		out[id] = ms
	}
	return out, nil
}

func (r *KVTokenRepository) Purge(ctx context.Context, t token.Type, consumerID string, ids ...string) (kvx.Replies, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.Token(t.String(), id)
	}
	b := r.store.Batch()
	b.Del(keys...)
	b.HDel(r.keys.ConsumerTokens(t.String(), consumerID), ids...)
	return b.Exec(ctx)
}

func encode(rec *token.Record) kvx.Fields {
	f := rec.Criteria.Fields()
	f[fieldID] = rec.ID
	f[fieldSecret] = rec.SecretEncrypted
	f.SetMillis(fieldExpiresAt, rec.ExpiresAt.UnixMilli())
	f.SetTime(fieldCreatedAt, rec.CreatedAt)
	return f
}

// decode treats a missing expiresAt as already expired.
func decode(f kvx.Fields) *token.Record {
	rec := &token.Record{
		Criteria:        token.CriteriaFrom(f),
		SecretEncrypted: f[fieldSecret],
		CreatedAt:       f.Time(fieldCreatedAt),
	}
	if ms, ok := f.Millis(fieldExpiresAt); ok {
		rec.ExpiresAt = time.UnixMilli(ms).UTC()
	}
	return rec
}
