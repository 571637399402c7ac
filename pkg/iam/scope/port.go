package scope

import (
	"context"

	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

// Removal describes what a registry removal touched.
type Removal struct {
	// Removed is how many of the names were declared.
	Removed int64
	// Rewritten lists the credential keys whose scope list was rewritten.
	Rewritten []string
	Replies   kvx.Replies
}

type Repository interface {
	Declare(ctx context.Context, names []string) error
	Exists(ctx context.Context, name string) (bool, error)
	// ListAll returns nil when nothing is declared.
	ListAll(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, names []string) (*Removal, error)
}

// Checker is the read side other services depend on.
type Checker interface {
	Exists(ctx context.Context, name string) (bool, error)
	ValidateExisting(ctx context.Context, names []string) error
}
