package scope

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("SCOPE")

var (
	CodeInvalidScope  = ErrRegistry.Register("INVALID_SCOPE", errx.TypeValidation, 0, "Scope names must not be empty")
	CodeScopeNotFound = ErrRegistry.Register("SCOPE_NOT_FOUND", errx.TypeValidation, 0, "One or more scopes don't exist")
)

func ErrInvalidScope() *errx.Error { return ErrRegistry.New(CodeInvalidScope) }
func ErrScopeNotFound(name string) *errx.Error {
	return ErrRegistry.New(CodeScopeNotFound).WithDetail("scope", name)
}
