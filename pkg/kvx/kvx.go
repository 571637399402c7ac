// Package kvx is the narrow key-value contract the identity services are
// written against. It covers single-key strings, hash fields, sets, a cursor
// scan and a best-effort batch. Nothing here spans keys atomically except
// HTakeIfMatch, which is one indivisible call on a single key.
package kvx

import "context"

// Store is the identity store adapter.
type Store interface {
	// Get returns the string at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Del removes the keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// HSet writes the given fields. An empty Fields is a no-op.
	HSet(ctx context.Context, key string, fields Fields) error
	// HGetAll returns every field of the hash, or an empty Fields when the
	// key does not exist.
	HGetAll(ctx context.Context, key string) (Fields, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	// Scan walks the key space. A returned cursor of zero means the walk is
	// complete. count is a page-size hint.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// HTakeIfMatch reads the hash at key and deletes it in the same call when
	// every field in want equals the stored value. It returns the stored
	// fields (empty when absent) and whether the hash was deleted.
	HTakeIfMatch(ctx context.Context, key string, want Fields) (Fields, bool, error)

	// Batch starts a multi-command unit.
	Batch() Batch
}

// Batch queues commands and sends them as one unit on Exec. There is no
// rollback: commands that ran before a failure stay applied.
type Batch interface {
	HSet(key string, fields Fields)
	// HSetIfExists writes the fields only when the hash already exists at
	// execution time. It replies 0 when the key was missing.
	HSetIfExists(key string, fields Fields)
	HDel(key string, fields ...string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
	Del(keys ...string)
	Len() int
	Exec(ctx context.Context) (Replies, error)
}

// Replies holds one reply per queued command. Hash writes reply 1; the other
// commands reply with the number of members or keys they affected.
type Replies []int64

// OK reports whether every reply is truthy.
func (r Replies) OK() bool {
	for _, v := range r {
		if v <= 0 {
			return false
		}
	}
	return true
}
