package kvxredis

import (
	"context"
	"errors"

	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/redis/go-redis/v9"
)

// Store implements kvx.Store on a go-redis client.
type Store struct {
	rdb redis.UniversalClient
}

var _ kvx.Store = (*Store)(nil)

func New(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, redisErrors.NewWithCause(ErrRead, err).WithDetail("key", key)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).WithDetail("key", key)
	}
	return nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, redisErrors.NewWithCause(ErrWrite, err).WithDetail("keys", keys)
	}
	return n, nil
}

func (s *Store) HSet(ctx context.Context, key string, fields kvx.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.rdb.HSet(ctx, key, toArgs(fields)).Err(); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).WithDetail("key", key)
	}
	return nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (kvx.Fields, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrRead, err).WithDetail("key", key)
	}
	return kvx.Fields(m), nil
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, redisErrors.NewWithCause(ErrRead, err).WithDetail("key", key)
	}
	return v, true, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	n, err := s.rdb.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, redisErrors.NewWithCause(ErrWrite, err).WithDetail("key", key)
	}
	return n, nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	n, err := s.rdb.SAdd(ctx, key, toMembers(members)...).Result()
	if err != nil {
		return 0, redisErrors.NewWithCause(ErrWrite, err).WithDetail("key", key)
	}
	return n, nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	n, err := s.rdb.SRem(ctx, key, toMembers(members)...).Result()
	if err != nil {
		return 0, redisErrors.NewWithCause(ErrWrite, err).WithDetail("key", key)
	}
	return n, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrRead, err).WithDetail("key", key)
	}
	return members, nil
}

func (s *Store) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := s.rdb.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, redisErrors.NewWithCause(ErrScan, err).WithDetail("match", match)
	}
	return keys, next, nil
}

// takeIfMatchScript deletes KEYS[1] only when every ARGV field/value pair
// matches. Reply: {deleted (0|1), {field, value, ...}}.
var takeIfMatchScript = redis.NewScript(`
local data = redis.call('HGETALL', KEYS[1])
if #data == 0 then
	return {0, data}
end
for i = 1, #ARGV, 2 do
	if redis.call('HGET', KEYS[1], ARGV[i]) ~= ARGV[i + 1] then
		return {0, data}
	end
end
redis.call('DEL', KEYS[1])
return {1, data}
`)

// hsetIfExistsScript writes the ARGV field/value pairs into KEYS[1] only
// when the hash exists. Reply: 1 when written, 0 otherwise.
var hsetIfExistsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

func (s *Store) HTakeIfMatch(ctx context.Context, key string, want kvx.Fields) (kvx.Fields, bool, error) {
	args := make([]interface{}, 0, len(want)*2)
	for k, v := range want {
		args = append(args, k, v)
	}

	res, err := takeIfMatchScript.Run(ctx, s.rdb, []string{key}, args...).Slice()
	if err != nil {
		return nil, false, redisErrors.NewWithCause(ErrScript, err).WithDetail("key", key)
	}
	if len(res) != 2 {
		return nil, false, redisErrors.New(ErrDecode).WithDetail("key", key)
	}

	deleted, _ := res[0].(int64)
	pairs, _ := res[1].([]interface{})
	fields := make(kvx.Fields, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		f, ok1 := pairs[i].(string)
		v, ok2 := pairs[i+1].(string)
		if !ok1 || !ok2 {
			return nil, false, redisErrors.New(ErrDecode).WithDetail("key", key)
		}
		fields[f] = v
	}
	return fields, deleted == 1, nil
}

func (s *Store) Batch() kvx.Batch {
	return &batch{rdb: s.rdb}
}

type queued struct {
	name  string
	apply func(ctx context.Context, pipe redis.Pipeliner) redis.Cmder
}

// batch queues commands and sends them in one MULTI/EXEC.
type batch struct {
	rdb redis.UniversalClient
	ops []queued
}

func (b *batch) push(name string, apply func(ctx context.Context, pipe redis.Pipeliner) redis.Cmder) {
	b.ops = append(b.ops, queued{name: name, apply: apply})
}

func (b *batch) HSet(key string, fields kvx.Fields) {
	if len(fields) == 0 {
		return
	}
	args := toArgs(fields)
	b.push("hset", func(ctx context.Context, p redis.Pipeliner) redis.Cmder { return p.HSet(ctx, key, args) })
}

func (b *batch) HSetIfExists(key string, fields kvx.Fields) {
	if len(fields) == 0 {
		return
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	b.push("hsetx", func(ctx context.Context, p redis.Pipeliner) redis.Cmder {
		return hsetIfExistsScript.Eval(ctx, p, []string{key}, args...)
	})
}

func (b *batch) HDel(key string, fields ...string) {
	if len(fields) == 0 {
		return
	}
	b.push("hdel", func(ctx context.Context, p redis.Pipeliner) redis.Cmder { return p.HDel(ctx, key, fields...) })
}

func (b *batch) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.push("sadd", func(ctx context.Context, p redis.Pipeliner) redis.Cmder {
		return p.SAdd(ctx, key, toMembers(members)...)
	})
}

func (b *batch) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.push("srem", func(ctx context.Context, p redis.Pipeliner) redis.Cmder {
		return p.SRem(ctx, key, toMembers(members)...)
	})
}

func (b *batch) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.push("del", func(ctx context.Context, p redis.Pipeliner) redis.Cmder { return p.Del(ctx, keys...) })
}

func (b *batch) Len() int {
	return len(b.ops)
}

func (b *batch) Exec(ctx context.Context) (kvx.Replies, error) {
	if len(b.ops) == 0 {
		return kvx.Replies{}, nil
	}

	pipe := b.rdb.TxPipeline()
	cmds := make([]redis.Cmder, len(b.ops))
	for i, op := range b.ops {
		cmds[i] = op.apply(ctx, pipe)
	}
	_, err := pipe.Exec(ctx)

	replies := make(kvx.Replies, len(cmds))
	for i, cmd := range cmds {
		replies[i] = reply(b.ops[i].name, cmd)
	}
	if err != nil {
		return replies, redisErrors.NewWithCause(ErrBatch, err).WithDetail("commands", len(cmds))
	}
	return replies, nil
}

func reply(name string, cmd redis.Cmder) int64 {
	if cmd.Err() != nil {
		return 0
	}
	if name == "hset" {
		return 1
	}
	switch c := cmd.(type) {
	case *redis.IntCmd:
		return c.Val()
	case *redis.Cmd:
		n, _ := c.Int64()
		return n
	}
	return 0
}

func toArgs(fields kvx.Fields) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func toMembers(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

