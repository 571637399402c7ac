package errx

import "net/http"

// Type represents the category of error
type Type string

const (
	TypeInternal Type = "INTERNAL"

	// TypeValidation covers malformed or missing arguments.
	TypeValidation Type = "VALIDATION"

	TypeAuthorization Type = "AUTHORIZATION"

	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict covers uniqueness violations and ambiguous lookups.
	TypeConflict Type = "CONFLICT"

	TypeBusiness Type = "BUSINESS"

	// TypeExternal marks failures of a backing service such as the store.
	TypeExternal Type = "EXTERNAL"

	// TypeCrypto marks hashing, cipher and signing failures.
	TypeCrypto Type = "CRYPTO"
)

func (t Type) String() string {
	return string(t)
}

var typeStatus = map[Type]int{
	TypeValidation:    http.StatusBadRequest,
	TypeAuthorization: http.StatusUnauthorized,
	TypeNotFound:      http.StatusNotFound,
	TypeConflict:      http.StatusConflict,
	TypeBusiness:      http.StatusUnprocessableEntity,
	TypeExternal:      http.StatusBadGateway,
	TypeCrypto:        http.StatusInternalServerError,
	TypeInternal:      http.StatusInternalServerError,
}

// HTTPStatus maps an error type to the suggested status code.
func (t Type) HTTPStatus() int {
	if s, ok := typeStatus[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}
