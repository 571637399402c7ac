package application

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("APPLICATION")

var (
	CodeInvalidApplication = ErrRegistry.Register("INVALID_APPLICATION", errx.TypeValidation, 0, "Invalid application")
	CodeInvalidProperties  = ErrRegistry.Register("INVALID_PROPERTIES", errx.TypeValidation, 0, "One or more properties is invalid")
	CodeImmutable          = ErrRegistry.Register("IMMUTABLE_PROPERTY", errx.TypeValidation, 0, "One or more properties is immutable")
	CodeNameTaken          = ErrRegistry.Register("NAME_TAKEN", errx.TypeConflict, 0, "The owner already has an application with this name")
	CodeAmbiguousName      = ErrRegistry.Register("AMBIGUOUS_NAME", errx.TypeConflict, 0, "Multiple applications share this name")
	CodeUserNotFound       = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, 0, "Owner not found")
	CodeNotFound           = ErrRegistry.Register("APPLICATION_NOT_FOUND", errx.TypeNotFound, 0, "Application not found")
	CodeWriteFailed        = ErrRegistry.Register("WRITE_FAILED", errx.TypeInternal, 0, "One or more application writes failed")
)

func ErrInvalidApplication() *errx.Error { return ErrRegistry.New(CodeInvalidApplication) }

func ErrInvalidProperties(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidProperties).WithDetail("reason", reason)
}

func ErrImmutable(prop string) *errx.Error {
	return ErrRegistry.New(CodeImmutable).WithDetail("property", prop)
}

func ErrNameTaken(userID, name string) *errx.Error {
	return ErrRegistry.New(CodeNameTaken).WithDetail("user_id", userID).WithDetail("name", name)
}

func ErrAmbiguousName(name string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeAmbiguousName, "Multiple applications with "+name).WithDetail("name", name)
}

func ErrUserNotFound(id string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeUserNotFound, "User "+id+" not found").WithDetail("user_id", id)
}

func ErrNotFound(id string) *errx.Error {
	return ErrRegistry.New(CodeNotFound).WithDetail("id", id)
}

func ErrWriteFailed(op string) *errx.Error {
	return ErrRegistry.New(CodeWriteFailed).WithDetail("op", op)
}
