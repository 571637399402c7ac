package scopeinfra

import (
	"context"
	"sort"

	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

// Scope records live in one hash of declared names. Each scope also has a
// scope-credentials hash whose fields are the keys of the credentials
// granted that scope.
type KVScopeRepository struct {
	store kvx.Store
	keys  keyspace.Keys
}

var _ scope.Repository = (*KVScopeRepository)(nil)

// NewKVScopeRepository stores the scope set and the scope to credential
// associations under keys.
func NewKVScopeRepository(store kvx.Store, keys keyspace.Keys) *KVScopeRepository {
	return &KVScopeRepository{store: store, keys: keys}
}

func (r *KVScopeRepository) Declare(ctx context.Context, names []string) error {
	fields := make(kvx.Fields, len(names))
	for _, n := range names {
		fields.SetBool(n, true)
	}
	return r.store.HSet(ctx, r.keys.Scopes(), fields)
}

func (r *KVScopeRepository) Exists(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.store.HGet(ctx, r.keys.Scopes(), name)
	return ok, err
}

func (r *KVScopeRepository) ListAll(ctx context.Context) ([]string, error) {
	all, err := r.store.HGetAll(ctx, r.keys.Scopes())
	if err != nil {
		return nil, err
	}
	if all.Empty() {
		return nil, nil
	}
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Remove reads every scope-credentials index, works out which scopes each
// credential loses, reads those credentials and then sends the registry
// deletion, the index deletions and the rewritten scope lists as one batch.
// Credentials that vanished before the batch runs are left absent.
func (r *KVScopeRepository) Remove(ctx context.Context, names []string) (*scope.Removal, error) {
	strip := make(map[string][]string)
	for _, name := range names {
		assoc, err := r.store.HGetAll(ctx, r.keys.ScopeCredentials(name))
		if err != nil {
			return nil, err
		}
		for credKey := range assoc {
			strip[credKey] = append(strip[credKey], name)
		}
	}

	credKeys := make([]string, 0, len(strip))
	for k := range strip {
		credKeys = append(credKeys, k)
	}
	sort.Strings(credKeys)

	rewrites := make(map[string][]string, len(credKeys))
	for _, k := range credKeys {
		cred, err := r.store.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		if !cred.Has("scopes") {
			continue
		}
		rewrites[k] = without(cred.Strings("scopes"), strip[k])
	}

	b := r.store.Batch()
	b.HDel(r.keys.Scopes(), names...)
	for _, name := range names {
		b.Del(r.keys.ScopeCredentials(name))
	}
	rewritten := make([]string, 0, len(rewrites))
	for _, k := range credKeys {
		scopes, ok := rewrites[k]
		if !ok {
			continue
		}
		f := kvx.Fields{}
		f.SetStrings("scopes", scopes)
		b.HSetIfExists(k, f)
		rewritten = append(rewritten, k)
	}

	replies, err := b.Exec(ctx)
	if err != nil {
		return nil, err
	}

	removal := &scope.Removal{Rewritten: rewritten, Replies: replies}
	if len(replies) > 0 {
		removal.Removed = replies[0]
	}
	return removal, nil
}

func without(list, drop []string) []string {
	gone := make(map[string]bool, len(drop))
	for _, d := range drop {
		gone[d] = true
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !gone[v] {
			out = append(out, v)
		}
	}
	return out
}
