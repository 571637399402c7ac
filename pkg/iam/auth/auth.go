package auth

import (
	"net/http"

	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/application"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
)

// ============================================================================
// Consumer
// ============================================================================

// Consumer is an active user or application, tagged with its kind. Exactly
// one of User and Application is set.
type Consumer struct {
	Kind        kernel.ConsumerKind
	User        *user.User
	Application *application.Application
}

func userConsumer(u *user.User) *Consumer {
	return &Consumer{Kind: kernel.ConsumerUser, User: u}
}

func applicationConsumer(a *application.Application) *Consumer {
	return &Consumer{Kind: kernel.ConsumerApplication, Application: a}
}

func (c *Consumer) ID() kernel.ConsumerID {
	if c.Application != nil {
		return c.Application.ConsumerID()
	}
	return c.User.ConsumerID()
}

// Name is the username or the application name.
func (c *Consumer) Name() string {
	if c.Application != nil {
		return c.Application.Name
	}
	return c.User.Username
}

func (c *Consumer) IsActive() bool {
	if c.Application != nil {
		return c.Application.IsActive
	}
	return c.User != nil && c.User.IsActive
}

// TokenAuthentication is the outcome of a successful token authentication.
type TokenAuthentication struct {
	Token    *token.Token
	Consumer *Consumer
}

type ValidateOptions struct {
	// CheckUsername also resolves id as a username.
	CheckUsername bool
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeUnauthorized       = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Unauthorized")
	CodeInvalidHeader      = ErrRegistry.Register("INVALID_AUTHORIZATION_HEADER", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid authorization header")
	CodeInsufficientScopes = ErrRegistry.Register("INSUFFICIENT_SCOPES", errx.TypeAuthorization, http.StatusForbidden, "Insufficient scopes")
)

func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

func ErrInvalidHeader() *errx.Error {
	return ErrRegistry.New(CodeInvalidHeader)
}

func ErrInsufficientScopes(scopes []string) *errx.Error {
	return ErrRegistry.New(CodeInsufficientScopes).WithDetail("required", scopes)
}
