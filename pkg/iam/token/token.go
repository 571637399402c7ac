package token

import (
	"strings"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/kvx"
)

type Type string

const (
	TypeAccess  Type = "access_token"
	TypeRefresh Type = "refresh_token"
)

func (t Type) String() string { return string(t) }

// Separator joins the id and the plaintext secret of an external token.
const Separator = "|"

const (
	fieldConsumerID          = "consumerId"
	fieldAuthenticatedUserID = "authenticatedUserId"
	fieldRedirectURI         = "redirectUri"
	fieldScopes              = "scopes"
)

// Criteria are the issuance parameters a token is looked up by.
type Criteria struct {
	ConsumerID          string   `json:"consumerId"`
	AuthenticatedUserID string   `json:"authenticatedUserId,omitempty"`
	RedirectURI         string   `json:"redirectUri,omitempty"`
	Scopes              []string `json:"scopes,omitempty"`
}

// Fields is the canonical stored form. Empty values are omitted and scopes
// are sorted.
func (c Criteria) Fields() kvx.Fields {
	f := kvx.Fields{fieldConsumerID: c.ConsumerID}
	if c.AuthenticatedUserID != "" {
		f[fieldAuthenticatedUserID] = c.AuthenticatedUserID
	}
	if c.RedirectURI != "" {
		f[fieldRedirectURI] = c.RedirectURI
	}
	if c.Scopes != nil {
		f.SetStrings(fieldScopes, c.Scopes)
	}
	return f
}

// Matches reports whether a stored record was issued for exactly these
// criteria. A field absent here must be absent there too.
func (c Criteria) Matches(stored kvx.Fields) bool {
	want := c.Fields()
	for _, k := range []string{fieldConsumerID, fieldAuthenticatedUserID, fieldRedirectURI, fieldScopes} {
		w, inWant := want[k]
		s, inStored := stored[k]
		if inWant != inStored || w != s {
			return false
		}
	}
	return true
}

// CriteriaFrom reads the criteria back out of a stored record.
func CriteriaFrom(f kvx.Fields) Criteria {
	c := Criteria{
		ConsumerID:          f[fieldConsumerID],
		AuthenticatedUserID: f[fieldAuthenticatedUserID],
		RedirectURI:         f[fieldRedirectURI],
	}
	if f.Has(fieldScopes) {
		c.Scopes = f.Strings(fieldScopes)
	}
	return c
}

// Record is a token as persisted: the secret is only held encrypted.
type Record struct {
	ID              string
	Type            Type
	Criteria        Criteria
	SecretEncrypted string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Token is a live token with its secret decrypted.
type Token struct {
	Criteria
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Secret    string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// External is the only form handed to callers: id|secret.
func (t *Token) External() string {
	return t.ID + Separator + t.Secret
}

// ParseExternal splits an external token. ok is false when there is no
// separator or the id half is empty.
func ParseExternal(external string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(external, Separator)
	if !found || id == "" {
		return "", "", false
	}
	return id, secret, true
}

// Pair holds the external forms issued or found together.
type Pair struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

type SaveOptions struct {
	IncludeRefreshToken bool
	RefreshTokenOnly    bool
}

type FindOptions struct {
	IncludeRefreshToken bool
}

// GetOptions selects the token type. The zero value is an access token.
type GetOptions struct {
	Type Type
}

func (o GetOptions) TokenType() Type {
	if o.Type == "" {
		return TypeAccess
	}
	return o.Type
}
