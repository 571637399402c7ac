package credential

import "time"

// Kind separates credentials bound 1:1 to a consumer by a hashed password
// from credentials bound by an independently generated key pair.
type Kind string

const (
	KindPassword Kind = "password"
	KindKey      Kind = "key"
)

type Credential struct {
	// ID is the consumer id for password-bound types and the key id for
	// key-bound ones.
	ID         string
	Type       string
	ConsumerID string
	IsActive   bool
	// Scopes is nil when the type declares no scopes.
	Scopes []string

	// Secret is the password hash when loaded with IncludeSecret, or the
	// generated plaintext password right after insert.
	Secret    string
	KeyID     string
	KeySecret string

	// Properties holds the remaining declared properties.
	Properties map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecretHidden returns a copy without the password field.
func (c *Credential) SecretHidden() *Credential {
	out := *c
	out.Secret = ""
	return &out
}

type GetOptions struct {
	IncludeSecret bool
}
