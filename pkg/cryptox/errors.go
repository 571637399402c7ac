package cryptox

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var ErrRegistry = errx.NewRegistry("CRYPTO")

var (
	CodeHashFailed           = ErrRegistry.Register("HASH_FAILED", errx.TypeCrypto, 0, "Failed to hash secret")
	CodeCompareFailed        = ErrRegistry.Register("COMPARE_FAILED", errx.TypeCrypto, 0, "Failed to compare secret")
	CodeUnsupportedAlgorithm = ErrRegistry.Register("UNSUPPORTED_ALGORITHM", errx.TypeValidation, 0, "Unsupported cipher algorithm")
	CodeInvalidKey           = ErrRegistry.Register("INVALID_KEY", errx.TypeValidation, 0, "Cipher key is empty")
	CodeEncryptFailed        = ErrRegistry.Register("ENCRYPT_FAILED", errx.TypeCrypto, 0, "Failed to encrypt")
	CodeDecryptFailed        = ErrRegistry.Register("DECRYPT_FAILED", errx.TypeCrypto, 0, "Failed to decrypt")
)
