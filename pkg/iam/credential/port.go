package credential

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

type Repository interface {
	// Save writes the record, the consumer key association of key-bound
	// types and the scope associations in one batch. When replaced is set
	// its record and scope associations are dropped first in the same batch.
	Save(ctx context.Context, t *Type, c *Credential, replaced *Credential) error
	// FindByID returns nil when the record is absent.
	FindByID(ctx context.Context, t *Type, id string) (*Credential, error)
	// KeyIDs lists the key ids a consumer holds of a key-bound type.
	KeyIDs(ctx context.Context, t *Type, consumerID string) ([]string, error)
	UpdateFields(ctx context.Context, t *Type, id string, fields map[string]string, at time.Time) error
	SetActive(ctx context.Context, t *Type, id string, active bool, at time.Time) error
	// SetScopes stores scopes and adjusts the scope associations.
	SetScopes(ctx context.Context, t *Type, id string, scopes, associate, dissociate []string, at time.Time) error
	// Remove deletes one record with its consumer and scope associations.
	Remove(ctx context.Context, t *Type, c *Credential) (kvx.Replies, error)
	// RemoveAll deletes the records ids of a consumer, strips them from every
	// given scope association and drops the consumer's key set.
	RemoveAll(ctx context.Context, t *Type, consumerID string, ids, scopes []string) (kvx.Replies, error)
}
