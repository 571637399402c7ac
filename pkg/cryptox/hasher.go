package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies credential secrets.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare reports whether plain matches hash. A mismatch is not an error.
	Compare(hash, plain string) (bool, error)
}

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher uses cost as the bcrypt work factor, clamped to the range
// bcrypt accepts.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeHashFailed, err)
	}
	return string(out), nil
}

func (h *BcryptHasher) Compare(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrRegistry.NewWithCause(CodeCompareFailed, err)
	}
}
