package authcode

import "time"

// Code is a single-use authorization code.
type Code struct {
	ID          string    `json:"id"`
	ConsumerID  string    `json:"consumerId"`
	UserID      string    `json:"userId"`
	RedirectURI string    `json:"redirectUri,omitempty"`
	Scopes      []string  `json:"scopes,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *Code) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Criteria identifies a code on redemption. ID is required; every other
// non-empty field must equal the stored value.
type Criteria struct {
	ID          string
	ConsumerID  string
	UserID      string
	RedirectURI string
	Scopes      []string
}
