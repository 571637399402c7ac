package application

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

type Repository interface {
	// Save writes the record, the owner index and the name index in one batch.
	Save(ctx context.Context, a *Application) (kvx.Replies, error)
	// FindByID returns nil when the application does not exist.
	FindByID(ctx context.Context, id kernel.ApplicationID) (*Application, error)
	IDsByName(ctx context.Context, name string) ([]kernel.ApplicationID, error)
	IDsByUser(ctx context.Context, userID kernel.UserID) ([]kernel.ApplicationID, error)
	Update(ctx context.Context, id kernel.ApplicationID, fields kvx.Fields, at time.Time) error
	// Rename moves the name index entry and rewrites the name field.
	Rename(ctx context.Context, a *Application, name string, at time.Time) (kvx.Replies, error)
	SetActive(ctx context.Context, id kernel.ApplicationID, active bool, at time.Time) error
	// Remove deletes the record and both index entries in one batch.
	Remove(ctx context.Context, a *Application) (kvx.Replies, error)
	List(ctx context.Context, cursor uint64, count int64) (Page, error)
}
