package user

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

type Repository interface {
	// Save writes the record and the username index in one batch.
	Save(ctx context.Context, u *User) (kvx.Replies, error)
	// FindByID returns nil when the user does not exist.
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	// IDByUsername returns the empty id when the username is free.
	IDByUsername(ctx context.Context, username string) (kernel.UserID, error)
	Update(ctx context.Context, id kernel.UserID, fields kvx.Fields, at time.Time) error
	SetActive(ctx context.Context, id kernel.UserID, active bool, at time.Time) error
	// Remove deletes the record and its username index entry in one batch.
	Remove(ctx context.Context, u *User) (kvx.Replies, error)
	List(ctx context.Context, cursor uint64, count int64) (Page, error)
}
