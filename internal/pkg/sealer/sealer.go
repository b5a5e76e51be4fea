// Package sealer encrypts small payloads, such as session cookies, with
// AES-256-GCM. Every ciphertext is bound to a Purpose through the GCM
// additional data, so a value sealed for one use cannot be opened for another.
package sealer

// Purpose scopes a ciphertext to one use.
type Purpose string

// PurposeSession scopes ciphertexts to the session cookie.
const PurposeSession Purpose = "session_cookie"

// Sealer encrypts and authenticates payloads.
type Sealer interface {
	// Seal returns ciphertext for the given plaintext and purpose.
	Seal(plaintext []byte, purpose Purpose) (ciphertext []byte, err error)
	// Open returns plaintext for ciphertext sealed with the same purpose.
	Open(ciphertext []byte, purpose Purpose) (plaintext []byte, err error)
}

// KeyProvider provides raw AES keys. For AES-256-GCM keys must be 32 bytes.
type KeyProvider interface {
	Key(purpose Purpose) ([]byte, error)
}
