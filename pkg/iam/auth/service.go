package auth

import (
	"context"
	"crypto/subtle"

	"github.com/Abraxas-365/gatekeep/pkg/asyncx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
)

// AuthService resolves credentials and tokens to consumers and checks
// scopes. Failed authentication is reported as a nil result, not an error;
// errors are storage or crypto failures.
type AuthService struct {
	credentials  Credentials
	tokens       Tokens
	users        Users
	applications Applications
	scopes       Scopes
	hasher       PasswordComparer
	audit        AuditService
}

// NewAuthService returns an AuthService reporting outcomes to audit.
func NewAuthService(
	credentials Credentials,
	tokens Tokens,
	users Users,
	applications Applications,
	scopes Scopes,
	hasher PasswordComparer,
	audit AuditService,
) *AuthService {
	return &AuthService{
		credentials:  credentials,
		tokens:       tokens,
		users:        users,
		applications: applications,
		scopes:       scopes,
		hasher:       hasher,
		audit:        audit,
	}
}

// AuthenticateCredential checks password against the credential of type
// credType. For key-bound types id is the key id; for password-bound types
// it is the consumer id or a username.
func (s *AuthService) AuthenticateCredential(ctx context.Context, id, password, credType string) (*Consumer, error) {
	defer logx.Track("auth.AuthenticateCredential")()

	if id == "" || password == "" || credType == "" {
		return nil, nil
	}
	t, ok := s.credentials.Types().Lookup(credType)
	if !ok {
		return nil, nil
	}

	var (
		consumer *Consumer
		err      error
	)
	if t.Policy.Kind() == credential.KindKey {
		consumer, err = s.authenticateKey(ctx, id, password, credType)
	} else {
		consumer, err = s.authenticatePassword(ctx, id, password, credType)
	}
	if err != nil {
		return nil, err
	}
	s.audit.LogCredentialAuthentication(ctx, credType, id, consumer)
	return consumer, nil
}

func (s *AuthService) authenticateKey(ctx context.Context, keyID, keySecret, credType string) (*Consumer, error) {
	c, err := s.credentials.GetCredential(ctx, keyID, credType, credential.GetOptions{IncludeSecret: true})
	if err != nil || c == nil || !c.IsActive {
		return nil, err
	}
	if !equal(c.KeySecret, keySecret) {
		return nil, nil
	}
	return s.ValidateConsumer(ctx, c.ConsumerID, ValidateOptions{CheckUsername: true})
}

func (s *AuthService) authenticatePassword(ctx context.Context, id, password, credType string) (*Consumer, error) {
	consumer, err := s.ValidateConsumer(ctx, id, ValidateOptions{CheckUsername: true})
	if err != nil || consumer == nil {
		return nil, err
	}
	c, err := s.credentials.GetCredential(ctx, consumer.ID().String(), credType, credential.GetOptions{IncludeSecret: true})
	if err != nil || c == nil || !c.IsActive {
		return nil, err
	}
	ok, err := s.hasher.Compare(c.Secret, password)
	if err != nil || !ok {
		return nil, err
	}
	return consumer, nil
}

// AuthenticateToken resolves an external access token to its active
// consumer.
func (s *AuthService) AuthenticateToken(ctx context.Context, external string) (*TokenAuthentication, error) {
	defer logx.Track("auth.AuthenticateToken")()

	_, secret, ok := token.ParseExternal(external)
	if !ok {
		return nil, nil
	}
	tok, err := s.tokens.Get(ctx, external, token.GetOptions{})
	if err != nil || tok == nil {
		return nil, err
	}
	consumer, err := s.ValidateConsumer(ctx, tok.ConsumerID, ValidateOptions{})
	if err != nil {
		return nil, err
	}

	if consumer == nil || !equal(tok.Secret, secret) {
		s.audit.LogTokenAuthentication(ctx, tok.ID, nil)
		return nil, nil
	}
	s.audit.LogTokenAuthentication(ctx, tok.ID, consumer)
	return &TokenAuthentication{Token: tok, Consumer: consumer}, nil
}

// AuthorizeToken reports whether the token grants every requested scope.
// No requested scopes always authorizes.
func (s *AuthService) AuthorizeToken(ctx context.Context, external string, scopes ...string) (bool, error) {
	defer logx.Track("auth.AuthorizeToken")()

	if len(scopes) == 0 {
		return true, nil
	}
	tok, err := s.tokens.Get(ctx, external, token.GetOptions{})
	if err != nil || tok == nil {
		return false, err
	}
	ok, err := s.granted(ctx, tok.Scopes, scopes)
	if err == nil && !ok {
		s.audit.LogAuthorizationDenied(ctx, "token:"+tok.ID, scopes)
	}
	return ok, err
}

// AuthorizeCredential reports whether the credential grants every
// requested scope. No requested scopes always authorizes.
func (s *AuthService) AuthorizeCredential(ctx context.Context, id, credType string, scopes ...string) (bool, error) {
	defer logx.Track("auth.AuthorizeCredential")()

	if len(scopes) == 0 {
		return true, nil
	}
	if _, ok := s.credentials.Types().Lookup(credType); !ok || id == "" {
		return false, nil
	}
	c, err := s.credentials.GetCredential(ctx, id, credType, credential.GetOptions{})
	if err != nil || c == nil {
		return false, err
	}
	ok, err := s.granted(ctx, c.Scopes, scopes)
	if err == nil && !ok {
		s.audit.LogAuthorizationDenied(ctx, credType+":"+id, scopes)
	}
	return ok, err
}

// granted requires requested to be a subset of held, and every requested
// scope to still be declared.
func (s *AuthService) granted(ctx context.Context, held, requested []string) (bool, error) {
	if held == nil {
		return false, nil
	}
	set := make(map[string]struct{}, len(held))
	for _, h := range held {
		set[h] = struct{}{}
	}
	for _, r := range requested {
		if _, ok := set[r]; !ok {
			return false, nil
		}
	}
	return asyncx.Every(ctx, requested, s.scopes.Exists)
}

// ValidateConsumer resolves id to an active application, then an active
// user, then with CheckUsername an active user by username. It returns nil
// when none matches.
func (s *AuthService) ValidateConsumer(ctx context.Context, id string, opts ValidateOptions) (*Consumer, error) {
	defer logx.Track("auth.ValidateConsumer")()

	if id == "" {
		return nil, nil
	}
	app, err := s.applications.Get(ctx, kernel.NewApplicationID(id))
	if err != nil {
		return nil, err
	}
	if app != nil && app.IsActive {
		return applicationConsumer(app), nil
	}

	u, err := s.users.Get(ctx, kernel.NewUserID(id))
	if err != nil {
		return nil, err
	}
	if u != nil && u.IsActive {
		return userConsumer(u), nil
	}
	if !opts.CheckUsername {
		return nil, nil
	}

	u, err = s.users.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if u != nil && u.IsActive {
		return userConsumer(u), nil
	}
	return nil, nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
