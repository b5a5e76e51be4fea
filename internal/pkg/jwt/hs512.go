package jwt

import (
	"errors"
	"fmt"
	"maps"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
)

// MinKeySize is the shortest HS512 key NewHS512 accepts, in bytes.
const MinKeySize = 64

var (
	ErrSigningKeyTooShort   = fmt.Errorf("jwt: HS512 key must be at least %d bytes", MinKeySize)
	ErrInvalidSigningMethod = errors.New("jwt: unexpected signing method")
	ErrTokenExpired         = errors.New("jwt: token expired")
	ErrInvalidToken         = errors.New("jwt: invalid token")
)

// JWT issues and checks tokens.
type JWT interface {
	Generate(subject string, values map[string]string) (string, error)
	Verify(token string) (Claims, error)
}

// Config holds what NewHS512 needs. UUID is required; Clock defaults to
// the system clock.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     interface{ Now() time.Time }
	UUID      interface{ Generate() string }
}

// HS512 is a JWT signed with a shared secret.
type HS512 struct {
	cfg    Config
	parser *libJWT.Parser
}

func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < MinKeySize {
		return nil, ErrSigningKeyTooShort
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithIssuer(cfg.Issuer),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
		libJWT.WithTimeFunc(cfg.Clock.Now),
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(cfg.Audiences...))
	}

	return &HS512{cfg: cfg, parser: libJWT.NewParser(opts...)}, nil
}

// Generate signs values for subject; the token expires after Config.TTL.
func (h *HS512) Generate(subject string, values map[string]string) (string, error) {
	now := h.cfg.Clock.Now()
	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        h.cfg.UUID.Generate(),
			Subject:   subject,
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		Values: maps.Clone(values),
	}

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, claims).SignedString(h.cfg.Secret)
}

func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := h.parser.ParseWithClaims(token, &claims, h.key)
	switch {
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, err
	case !parsed.Valid:
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (h *HS512) key(t *libJWT.Token) (any, error) {
	if t.Method != libJWT.SigningMethodHS512 {
		return nil, ErrInvalidSigningMethod
	}
	return h.cfg.Secret, nil
}
