package authcode

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("AUTH_CODE")

var CodeInvalidArguments = ErrRegistry.Register("INVALID_ARGUMENTS", errx.TypeValidation, 0, "Invalid arguments")

func ErrInvalidArguments(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidArguments).WithDetail("reason", reason)
}
