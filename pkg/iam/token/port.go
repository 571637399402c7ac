package token

import (
	"context"

	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

type Repository interface {
	// Save writes the record and its consumer index entry in one batch.
	Save(ctx context.Context, r *Record) (kvx.Replies, error)
	// FindByID returns nil when the record does not exist. Expiry is left
	// to the caller.
	FindByID(ctx context.Context, t Type, id string) (*Record, error)
	// Index returns the consumer's token ids of type t with their expiry in
	// epoch milliseconds.
	Index(ctx context.Context, t Type, consumerID string) (map[string]int64, error)
	// Purge deletes the records and their consumer index entries.
	Purge(ctx context.Context, t Type, consumerID string, ids ...string) (kvx.Replies, error)
}
