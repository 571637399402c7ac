package user

import (
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/kernel"
)

type User struct {
	ID       kernel.UserID
	Username string
	IsActive bool
	// Properties holds the other declared properties, firstname and
	// lastname among them.
	Properties map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (u *User) ConsumerID() kernel.ConsumerID {
	return kernel.NewConsumerID(u.ID.String())
}

type Page = kernel.CursorPage[*User]
