package otp

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultPeriod is the RFC 6238 time step in seconds.
	DefaultPeriod uint = 30
	// DefaultSkew tolerates one step on either side of the current window.
	DefaultSkew uint = 1
)

// Secret encodings accepted by NormalizeSecret.
const (
	EncodingBase32 = "base32"
	EncodingASCII  = "ascii"
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

var (
	// ErrSecretRequired is returned when no shared secret is configured.
	ErrSecretRequired = errors.New("otp: secret is required")
	// ErrSecretMalformed is returned when the secret does not decode.
	ErrSecretMalformed = errors.New("otp: secret is malformed")
	// ErrUnknownEncoding is returned for an unsupported secret encoding.
	ErrUnknownEncoding = errors.New("otp: unknown secret encoding")
	// ErrUnknownAlgorithm is returned for an unsupported HMAC algorithm.
	ErrUnknownAlgorithm = errors.New("otp: unknown algorithm")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// OTP defines the contract for the shared-secret TOTP gate.
type OTP interface {
	// Validate reports whether code matches the window containing at, or one
	// of the Skew windows on either side. Malformed input returns false.
	Validate(code string, at time.Time) bool
	// GenerateCode returns the code for the window containing at.
	GenerateCode(at time.Time) (string, error)
	// URL returns the otpauth:// provisioning URI for authenticator apps.
	URL() string
	// Period is the time step length.
	Period() time.Duration
	// Skew is the number of adjacent windows tolerated on each side.
	Skew() uint
}

// Config describes the single shared TOTP credential.
type Config struct {
	// Secret is the Base32 encoded shared secret.
	Secret string
	// Label is the account name shown by authenticator apps.
	Label string
	// Issuer names the service in authenticator apps.
	Issuer string
	// Digits is 6 or 8.
	Digits int
	// Period is the step length in seconds.
	Period uint
	// Skew is the number of adjacent steps accepted on each side.
	Skew uint
	// Algorithm is one of SHA1, SHA256, SHA512 or MD5.
	Algorithm string
}

// TOTP implements OTP with a fixed secret, using github.com/pquerna/otp.
type TOTP struct {
	secret    string
	period    uint
	skew      uint
	digits    otp.Digits
	algorithm otp.Algorithm
	url       string
}

// NewTOTP validates cfg and returns a ready TOTP.
//
// Digits other than 8 fall back to 6 and a zero period falls back to 30s.
// A zero skew is honoured: only the current window is accepted.
func NewTOTP(cfg Config) (*TOTP, error) {
	secret := strings.ToUpper(strings.Join(strings.Fields(cfg.Secret), ""))
	secret = strings.TrimRight(secret, "=")
	if secret == "" {
		return nil, ErrSecretRequired
	}

	raw, err := b32.DecodeString(secret)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("%w: not valid base32", ErrSecretMalformed)
	}

	algorithm, err := ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	digits := otp.DigitsSix
	if cfg.Digits == 8 {
		digits = otp.DigitsEight
	}

	period := cfg.Period
	if period == 0 {
		period = DefaultPeriod
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      cfg.Issuer,
		AccountName: cfg.Label,
		Period:      period,
		Secret:      raw,
		Digits:      digits,
		Algorithm:   algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("otp: build key: %w", err)
	}

	return &TOTP{
		secret:    secret,
		period:    period,
		skew:      cfg.Skew,
		digits:    digits,
		algorithm: algorithm,
		url:       key.URL(),
	}, nil
}

// Validate checks whether a code is valid at the given time.
func (o *TOTP) Validate(code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != o.digits.Length() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}

	ok, err := totp.ValidateCustom(code, o.secret, at, o.opts())
	return ok && err == nil
}

// GenerateCode creates a TOTP code for the given time.
func (o *TOTP) GenerateCode(at time.Time) (string, error) {
	return totp.GenerateCodeCustom(o.secret, at, o.opts())
}

// URL returns the otpauth:// provisioning URI.
func (o *TOTP) URL() string {
	return o.url
}

// Period returns the step length.
func (o *TOTP) Period() time.Duration {
	return time.Duration(o.period) * time.Second
}

// Skew returns the number of tolerated adjacent steps.
func (o *TOTP) Skew() uint {
	return o.skew
}

func (o *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Skew:      o.skew,
		Digits:    o.digits,
		Algorithm: o.algorithm,
	}
}

// ParseAlgorithm maps a configuration name onto an otp.Algorithm. Empty means SHA1.
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "")) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	case "MD5":
		return otp.AlgorithmMD5, nil
	default:
		return otp.AlgorithmSHA1, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}
}

// NormalizeSecret converts a secret written in the given encoding into the
// Base32 form expected by Config.Secret. Empty encoding means Base32.
func NormalizeSecret(secret, encoding string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrSecretRequired
	}

	var raw []byte
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingBase32:
		return secret, nil
	case EncodingASCII:
		raw = []byte(secret)
	case EncodingHex:
		b, err := hex.DecodeString(strings.TrimSpace(secret))
		if err != nil {
			return "", fmt.Errorf("%w: not valid hex", ErrSecretMalformed)
		}
		raw = b
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
		if err != nil {
			return "", fmt.Errorf("%w: not valid base64", ErrSecretMalformed)
		}
		raw = b
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEncoding, encoding)
	}

	return b32.EncodeToString(raw), nil
}
