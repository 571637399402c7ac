package user

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeInvalidUser       = ErrRegistry.Register("INVALID_USER", errx.TypeValidation, 0, "Invalid user")
	CodeInvalidProperties = ErrRegistry.Register("INVALID_PROPERTIES", errx.TypeValidation, 0, "One or more properties is invalid")
	CodeImmutable         = ErrRegistry.Register("IMMUTABLE_PROPERTY", errx.TypeValidation, 0, "One or more properties is immutable")
	CodeUsernameTaken     = ErrRegistry.Register("USERNAME_TAKEN", errx.TypeConflict, 0, "Username already exists")
	CodeNotFound          = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, 0, "User not found")
	CodeWriteFailed       = ErrRegistry.Register("WRITE_FAILED", errx.TypeInternal, 0, "One or more user writes failed")
)

func ErrInvalidUser() *errx.Error { return ErrRegistry.New(CodeInvalidUser) }

func ErrInvalidProperties(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidProperties).WithDetail("reason", reason)
}

func ErrImmutable(prop string) *errx.Error {
	return ErrRegistry.New(CodeImmutable).WithDetail("property", prop)
}

func ErrUsernameTaken(username string) *errx.Error {
	return ErrRegistry.New(CodeUsernameTaken).WithDetail("username", username)
}

func ErrNotFound(id string) *errx.Error {
	return ErrRegistry.New(CodeNotFound).WithDetail("id", id)
}

func ErrWriteFailed(op string) *errx.Error {
	return ErrRegistry.New(CodeWriteFailed).WithDetail("op", op)
}
