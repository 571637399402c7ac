// Package keyspace is the single place that spells out store key names.
// Every key is prefixed with the configured namespace.
package keyspace

import "fmt"

type Keys struct {
	ns string
}

func New(namespace string) Keys {
	return Keys{ns: namespace}
}

func (k Keys) Namespace() string { return k.ns }

// Scopes is the hash of declared scope names.
func (k Keys) Scopes() string { return k.ns + "-scope" }

// ScopeCredentials is the hash of credential keys associated with a scope.
func (k Keys) ScopeCredentials(scope string) string {
	return fmt.Sprintf("%s-scope-credentials:%s", k.ns, scope)
}

// Credential is a credential record, or for key-bound types also the
// consumer's set of key ids.
func (k Keys) Credential(credType, id string) string {
	return fmt.Sprintf("%s-%s:%s", k.ns, credType, id)
}

func (k Keys) User(id string) string       { return fmt.Sprintf("%s-user:%s", k.ns, id) }
func (k Keys) UserPattern() string         { return k.ns + "-user:*" }
func (k Keys) Username(name string) string { return fmt.Sprintf("%s-username:%s", k.ns, name) }
func (k Keys) UserApplications(userID string) string {
	return fmt.Sprintf("%s-user-applications:%s", k.ns, userID)
}

func (k Keys) Application(id string) string       { return fmt.Sprintf("%s-application:%s", k.ns, id) }
func (k Keys) ApplicationPattern() string         { return k.ns + "-application:*" }
func (k Keys) ApplicationName(name string) string { return fmt.Sprintf("%s-application-name:%s", k.ns, name) }

func (k Keys) AuthCode(id string) string { return fmt.Sprintf("%s-auth-code:%s", k.ns, id) }

// Token is an access_token or refresh_token record.
func (k Keys) Token(tokenType, id string) string {
	return fmt.Sprintf("%s-%s:%s", k.ns, tokenType, id)
}

// ConsumerTokens is the hash tokenId -> expiresAt of a consumer's tokens.
func (k Keys) ConsumerTokens(tokenType, consumerID string) string {
	return fmt.Sprintf("%s-consumer-%ss:%s", k.ns, tokenType, consumerID)
}

func (k Keys) ReconQueue() string         { return k.ns + "-recon:queue" }
func (k Keys) ReconScheduled() string     { return k.ns + "-recon:scheduled" }
func (k Keys) ReconTask(id string) string { return fmt.Sprintf("%s-recon:task:%s", k.ns, id) }
