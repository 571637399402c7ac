package authcode

import "context"

type Repository interface {
	Save(ctx context.Context, c *Code) error
	// Take reads the code and deletes it in the same indivisible call when
	// every criteria field matches. It returns the stored code (nil when
	// absent) and whether it was consumed.
	Take(ctx context.Context, criteria Criteria) (*Code, bool, error)
	Remove(ctx context.Context, id string) error
}
