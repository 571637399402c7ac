package token

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("TOKEN")

var (
	CodeInvalidToken      = ErrRegistry.Register("INVALID_TOKEN", errx.TypeValidation, 0, "Invalid token arguments")
	CodeNotFound          = ErrRegistry.Register("TOKEN_NOT_FOUND", errx.TypeNotFound, 0, "Token not found")
	CodeWriteFailed       = ErrRegistry.Register("WRITE_FAILED", errx.TypeInternal, 0, "One or more token writes failed")
	CodeUnsupportedSigner = ErrRegistry.Register("UNSUPPORTED_ALGORITHM", errx.TypeValidation, 0, "Unsupported JWT algorithm")
	CodeInvalidSigningKey = ErrRegistry.Register("INVALID_SIGNING_KEY", errx.TypeCrypto, 0, "Invalid JWT signing key")
	CodeSigningFailed     = ErrRegistry.Register("SIGNING_FAILED", errx.TypeCrypto, 0, "Failed to sign JWT")
)

func ErrInvalidToken() *errx.Error { return ErrRegistry.New(CodeInvalidToken) }

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }

func ErrWriteFailed(op string) *errx.Error {
	return ErrRegistry.New(CodeWriteFailed).WithDetail("op", op)
}

func ErrUnsupportedSigner(alg string) *errx.Error {
	return ErrRegistry.New(CodeUnsupportedSigner).WithDetail("algorithm", alg)
}

func ErrInvalidSigningKey(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeInvalidSigningKey, cause)
}

func ErrSigningFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeSigningFailed, cause)
}
