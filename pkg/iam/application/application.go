package application

import (
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/kernel"
)

// Application is a consumer owned by a user.
type Application struct {
	ID         kernel.ApplicationID
	Name       string
	UserID     kernel.UserID
	IsActive   bool
	Properties map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (a *Application) ConsumerID() kernel.ConsumerID {
	return kernel.NewConsumerID(a.ID.String())
}

type Page = kernel.CursorPage[*Application]
