package credential

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("CREDENTIAL")

var (
	CodeInvalidCredential = ErrRegistry.Register("INVALID_CREDENTIAL", errx.TypeValidation, 0, "Invalid credential")
	CodeInvalidType       = ErrRegistry.Register("INVALID_TYPE", errx.TypeValidation, 0, "Invalid credential type")
	CodeInvalidProperties = ErrRegistry.Register("INVALID_PROPERTIES", errx.TypeValidation, 0, "Credential properties failed validation")
	CodeInvalidProperty   = ErrRegistry.Register("INVALID_PROPERTY", errx.TypeValidation, 0, "Credential property must be a string")
	CodeImmutable         = ErrRegistry.Register("IMMUTABLE_PROPERTY", errx.TypeValidation, 0, "Credential property is immutable")
	CodeScopesRequired    = ErrRegistry.Register("SCOPES_REQUIRED", errx.TypeValidation, 0, "Scopes are required")
	CodePasswordRequired  = ErrRegistry.Register("PASSWORD_REQUIRED", errx.TypeValidation, 0, "Password is required")
	CodeAlreadyExists     = ErrRegistry.Register("CREDENTIAL_ALREADY_EXISTS", errx.TypeConflict, 0, "Credential already exists")
	CodeNotFound          = ErrRegistry.Register("CREDENTIAL_NOT_FOUND", errx.TypeNotFound, 0, "Credential does not exist")
)

func ErrInvalidCredential() *errx.Error { return ErrRegistry.New(CodeInvalidCredential) }
func ErrAlreadyExists() *errx.Error     { return ErrRegistry.New(CodeAlreadyExists) }
func ErrScopesRequired() *errx.Error    { return ErrRegistry.New(CodeScopesRequired) }

func ErrInvalidType(name string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeInvalidType, "Invalid credential type: "+name).WithDetail("type", name)
}

func ErrInvalidProperties(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidProperties).WithDetail("reason", reason)
}

func ErrInvalidProperty(prop string) *errx.Error {
	return ErrRegistry.New(CodeInvalidProperty).WithDetail("property", prop)
}

func ErrImmutable(prop string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeImmutable, prop+" is immutable").WithDetail("property", prop)
}

func ErrPasswordRequired(field string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodePasswordRequired, field+" is required").WithDetail("property", field)
}

func ErrNotFound(id, credType string) *errx.Error {
	return ErrRegistry.New(CodeNotFound).WithDetail("id", id).WithDetail("type", credType)
}
