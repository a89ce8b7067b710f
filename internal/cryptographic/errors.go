// Package cryptographic holds the error taxonomy shared by the key
// management and encryption subpackages.
package cryptographic

import "errors"

var (
	// ErrInvalidInput reports empty or malformed arguments. Recoverable,
	// caller's fault.
	ErrInvalidInput = errors.New("cryptographic: invalid input")

	// ErrDecryptionFailed reports an authentication tag mismatch. It covers
	// both a wrong password and tampered or truncated ciphertext; callers
	// must not distinguish the two in anything user visible.
	ErrDecryptionFailed = errors.New("cryptographic: decryption failed")

	// ErrCryptoUnavailable reports a failure of the underlying RNG or
	// primitive library. Fatal; never fall back to weaker crypto.
	ErrCryptoUnavailable = errors.New("cryptographic: primitive unavailable")
)
