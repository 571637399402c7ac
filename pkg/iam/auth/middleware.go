package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/gatekeep/pkg/kernel"
)

// LocalsKey is the fiber Locals key holding the *kernel.AuthContext.
const LocalsKey = "auth"

// Middleware guards fiber routes with tokens or API keys. Failures are
// returned as errx errors for errx.FiberHandler to render.
type Middleware struct {
	auth *AuthService
}

// NewMiddleware returns fiber handlers backed by auth.
func NewMiddleware(auth *AuthService) *Middleware {
	return &Middleware{auth: auth}
}

// RequireToken expects "Authorization: Bearer <id|secret>" carrying an
// access token that grants every listed scope.
func (m *Middleware) RequireToken(scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		external, ok := credentialFrom(c.Get(fiber.HeaderAuthorization), "Bearer")
		if !ok {
			return ErrInvalidHeader()
		}

		ctx := c.UserContext()
		result, err := m.auth.AuthenticateToken(ctx, external)
		if err != nil {
			return err
		}
		if result == nil {
			return ErrUnauthorized()
		}
		granted, err := m.auth.AuthorizeToken(ctx, external, scopes...)
		if err != nil {
			return err
		}
		if !granted {
			return ErrInsufficientScopes(scopes)
		}

		return next(c, &kernel.AuthContext{
			ConsumerID:   result.Consumer.ID(),
			ConsumerKind: result.Consumer.Kind,
			Name:         result.Consumer.Name(),
			TokenID:      result.Token.ID,
			Scopes:       result.Token.Scopes,
		})
	}
}

// RequireKey expects "Authorization: apiKey <keyId:keySecret>" for a
// credential of credType that grants every listed scope.
func (m *Middleware) RequireKey(credType string, scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := credentialFrom(c.Get(fiber.HeaderAuthorization), "apiKey")
		if !ok {
			return ErrInvalidHeader()
		}
		keyID, keySecret, ok := strings.Cut(raw, ":")
		if !ok || keyID == "" || keySecret == "" {
			return ErrInvalidHeader()
		}

		ctx := c.UserContext()
		consumer, err := m.auth.AuthenticateCredential(ctx, keyID, keySecret, credType)
		if err != nil {
			return err
		}
		if consumer == nil {
			return ErrUnauthorized()
		}
		granted, err := m.auth.AuthorizeCredential(ctx, keyID, credType, scopes...)
		if err != nil {
			return err
		}
		if !granted {
			return ErrInsufficientScopes(scopes)
		}

		return next(c, &kernel.AuthContext{
			ConsumerID:     consumer.ID(),
			ConsumerKind:   consumer.Kind,
			Name:           consumer.Name(),
			CredentialType: credType,
			Scopes:         scopes,
		})
	}
}

// FromCtx returns the AuthContext a guard stored on c.
func FromCtx(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	ac, ok := c.Locals(LocalsKey).(*kernel.AuthContext)
	return ac, ok && ac != nil
}

func next(c *fiber.Ctx, ac *kernel.AuthContext) error {
	c.Locals(LocalsKey, ac)
	c.SetUserContext(kernel.WithAuthContext(c.UserContext(), ac))
	return c.Next()
}

func credentialFrom(header, scheme string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != scheme || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
