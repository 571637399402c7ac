// Package kvxmemory is an in-process kvx.Store. It follows the Redis
// semantics the services depend on, including WRONGTYPE errors and
// cursor-paged SCAN, and is what the service tests run against.
package kvxmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

var memErrors = errx.NewRegistry("KVX_MEMORY")

var ErrWrongType = memErrors.Register("WRONGTYPE", errx.TypeExternal, 0,
	"Operation against a key holding the wrong kind of value")

type Store struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
}

var _ kvx.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (s *Store) wrongType(key string, allow string) error {
	_, isString := s.strings[key]
	_, isHash := s.hashes[key]
	_, isSet := s.sets[key]
	if (isString && allow != "string") || (isHash && allow != "hash") || (isSet && allow != "set") {
		return memErrors.New(ErrWrongType).WithDetail("key", key)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wrongType(key, "string"); err != nil {
		return "", false, err
	}
	v, ok := s.strings[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.del(key)
	s.strings[key] = value
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.del(keys...), nil
}

func (s *Store) del(keys ...string) int64 {
	var n int64
	for _, k := range keys {
		_, a := s.strings[k]
		_, b := s.hashes[k]
		_, c := s.sets[k]
		if a || b || c {
			n++
		}
		delete(s.strings, k)
		delete(s.hashes, k)
		delete(s.sets, k)
	}
	return n
}

func (s *Store) HSet(_ context.Context, key string, fields kvx.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hset(key, fields)
}

func (s *Store) hset(key string, fields kvx.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.wrongType(key, "hash"); err != nil {
		return err
	}
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *Store) HGetAll(_ context.Context, key string) (kvx.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wrongType(key, "hash"); err != nil {
		return nil, err
	}
	return copyHash(s.hashes[key]), nil
}

func (s *Store) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wrongType(key, "hash"); err != nil {
		return "", false, err
	}
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *Store) HDel(_ context.Context, key string, fields ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hdel(key, fields...)
}

func (s *Store) hdel(key string, fields ...string) (int64, error) {
	if err := s.wrongType(key, "hash"); err != nil {
		return 0, err
	}
	h := s.hashes[key]
	var n int64
	for _, f := range fields {
		if _, ok := h[f]; ok {
			delete(h, f)
			n++
		}
	}
	if h != nil && len(h) == 0 {
		delete(s.hashes, key)
	}
	return n, nil
}

func (s *Store) SAdd(_ context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sadd(key, members...)
}

func (s *Store) sadd(key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	if err := s.wrongType(key, "set"); err != nil {
		return 0, err
	}
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	var n int64
	for _, m := range members {
		if _, ok := set[m]; !ok {
			set[m] = struct{}{}
			n++
		}
	}
	return n, nil
}

func (s *Store) SRem(_ context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srem(key, members...)
}

func (s *Store) srem(key string, members ...string) (int64, error) {
	if err := s.wrongType(key, "set"); err != nil {
		return 0, err
	}
	set := s.sets[key]
	var n int64
	for _, m := range members {
		if _, ok := set[m]; ok {
			delete(set, m)
			n++
		}
	}
	if set != nil && len(set) == 0 {
		delete(s.sets, key)
	}
	return n, nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wrongType(key, "set"); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Scan walks a sorted snapshot of the key space. The cursor is an offset
// into that snapshot; count keys are examined per call before filtering.
func (s *Store) Scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	keys := s.keys()
	s.mu.Unlock()

	if count <= 0 {
		count = 10
	}
	start := int(cursor)
	if start >= len(keys) {
		return []string{}, 0, nil
	}
	end := start + int(count)
	if end > len(keys) {
		end = len(keys)
	}

	out := make([]string, 0, end-start)
	for _, k := range keys[start:end] {
		if match == "" || kvx.Match(match, k) {
			out = append(out, k)
		}
	}
	if end == len(keys) {
		return out, 0, nil
	}
	return out, uint64(end), nil
}

func (s *Store) keys() []string {
	keys := make([]string, 0, len(s.strings)+len(s.hashes)+len(s.sets))
	for k := range s.strings {
		keys = append(keys, k)
	}
	for k := range s.hashes {
		keys = append(keys, k)
	}
	for k := range s.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) HTakeIfMatch(_ context.Context, key string, want kvx.Fields) (kvx.Fields, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wrongType(key, "hash"); err != nil {
		return nil, false, err
	}
	h, ok := s.hashes[key]
	if !ok {
		return kvx.Fields{}, false, nil
	}
	fields := copyHash(h)
	for k, v := range want {
		if got, ok := h[k]; !ok || got != v {
			return fields, false, nil
		}
	}
	delete(s.hashes, key)
	return fields, true, nil
}

func (s *Store) Batch() kvx.Batch {
	return &batch{store: s}
}

type batch struct {
	store *Store
	ops   []func() (int64, error)
}

func (b *batch) HSet(key string, fields kvx.Fields) {
	if len(fields) == 0 {
		return
	}
	fields = fields.Clone()
	b.ops = append(b.ops, func() (int64, error) { return 1, b.store.hset(key, fields) })
}

func (b *batch) HSetIfExists(key string, fields kvx.Fields) {
	if len(fields) == 0 {
		return
	}
	fields = fields.Clone()
	b.ops = append(b.ops, func() (int64, error) {
		if _, ok := b.store.hashes[key]; !ok {
			return 0, nil
		}
		return 1, b.store.hset(key, fields)
	})
}

func (b *batch) HDel(key string, fields ...string) {
	if len(fields) == 0 {
		return
	}
	b.ops = append(b.ops, func() (int64, error) { return b.store.hdel(key, fields...) })
}

func (b *batch) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, func() (int64, error) { return b.store.sadd(key, members...) })
}

func (b *batch) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, func() (int64, error) { return b.store.srem(key, members...) })
}

func (b *batch) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.ops = append(b.ops, func() (int64, error) { return b.store.del(keys...), nil })
}

func (b *batch) Len() int {
	return len(b.ops)
}

// Exec applies every queued command under one lock. Like MULTI/EXEC, a
// failing command does not stop the ones after it.
func (b *batch) Exec(_ context.Context) (kvx.Replies, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	replies := make(kvx.Replies, len(b.ops))
	var firstErr error
	for i, op := range b.ops {
		n, err := op()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		replies[i] = n
	}
	return replies, firstErr
}

func copyHash(h map[string]string) kvx.Fields {
	out := make(kvx.Fields, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
