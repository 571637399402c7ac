package auth

import (
	"context"

	"github.com/Abraxas-365/gatekeep/pkg/iam/application"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
)

type Credentials interface {
	GetCredential(ctx context.Context, id, credType string, opts credential.GetOptions) (*credential.Credential, error)
	Types() *credential.Types
}

type Tokens interface {
	Get(ctx context.Context, external string, opts token.GetOptions) (*token.Token, error)
}

type Users interface {
	Get(ctx context.Context, id kernel.UserID) (*user.User, error)
	Find(ctx context.Context, username string) (*user.User, error)
}

type Applications interface {
	Get(ctx context.Context, id kernel.ApplicationID) (*application.Application, error)
}

type Scopes interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// PasswordComparer checks a plaintext against a stored password hash.
type PasswordComparer interface {
	Compare(hash, plain string) (bool, error)
}

// AuditService records authentication outcomes.
type AuditService interface {
	LogCredentialAuthentication(ctx context.Context, credType, id string, consumer *Consumer)
	LogTokenAuthentication(ctx context.Context, tokenID string, consumer *Consumer)
	LogAuthorizationDenied(ctx context.Context, subject string, scopes []string)
}
