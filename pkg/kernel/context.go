package kernel

import "context"

// AuthContext describes the authenticated caller of a request.
type AuthContext struct {
	ConsumerID     ConsumerID   `json:"consumer_id"`
	ConsumerKind   ConsumerKind `json:"consumer_kind"`
	Name           string       `json:"name,omitempty"`
	CredentialType string       `json:"credential_type,omitempty"`
	TokenID        string       `json:"token_id,omitempty"`
	Scopes         []string     `json:"scopes"`
}

func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.ConsumerID.IsEmpty() && ac.ConsumerKind != ""
}

// HasScope reports an exact scope match.
func (ac *AuthContext) HasScope(scope string) bool {
	for _, s := range ac.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (ac *AuthContext) HasAnyScope(scopes ...string) bool {
	for _, scope := range scopes {
		if ac.HasScope(scope) {
			return true
		}
	}
	return false
}

func (ac *AuthContext) HasAllScopes(scopes ...string) bool {
	for _, scope := range scopes {
		if !ac.HasScope(scope) {
			return false
		}
	}
	return true
}

type ContextKey string

const AuthContextKey ContextKey = "auth_context"

func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}

// AuthContextFrom returns the AuthContext stored in ctx, if any.
func AuthContextFrom(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(AuthContextKey).(*AuthContext)
	return ac, ok && ac != nil
}
