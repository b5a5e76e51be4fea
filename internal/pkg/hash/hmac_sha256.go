package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 produces hex encoded HMAC-SHA256 digests.
type HMACSHA256 struct {
	key   []byte
	label []byte
}

// Option configures an HMACSHA256.
type Option func(*HMACSHA256)

// WithLabel separates digests of the same input made for different purposes.
// The label and a zero byte are mixed in ahead of the input.
func WithLabel(label string) Option {
	return func(h *HMACSHA256) {
		if label != "" {
			h.label = append([]byte(label), 0)
		}
	}
}

// NewHMACSHA256 returns a hasher keyed with secret.
func NewHMACSHA256(secret string, opts ...Option) *HMACSHA256 {
	h := &HMACSHA256{key: []byte(secret)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash never fails; the error is part of the Hash contract.
func (h *HMACSHA256) Hash(str string) ([]byte, error) {
	return hex.AppendEncode(nil, h.sum(str)), nil
}

// Verify compares in constant time.
func (h *HMACSHA256) Verify(hashed, str string) bool {
	raw, err := hex.DecodeString(hashed)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, h.sum(str))
}

func (h *HMACSHA256) sum(str string) []byte {
	mac := hmac.New(sha256.New, h.key)
	mac.Write(h.label)
	mac.Write([]byte(str))
	return mac.Sum(nil)
}
