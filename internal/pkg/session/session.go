package session

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/sealer"
	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultCookieName names the session cookie when none is configured.
	DefaultCookieName = "otpgate"
	// DefaultMaxAge bounds the signed lifetime of a session.
	DefaultMaxAge = 24 * time.Hour
	// MinSecretLength is the minimum accepted length of Config.Secret.
	MinSecretLength = 32

	subject  = "otpgate-session"
	audience = "otpgate-session"
)

// ErrSecretTooShort is returned when Config.Secret is shorter than MinSecretLength.
var ErrSecretTooShort = fmt.Errorf("session: secret must be at least %d characters", MinSecretLength)

// ErrCookieTooLarge is returned when the encoded session exceeds browser limits.
var ErrCookieTooLarge = errors.New("session: encoded cookie exceeds 4096 bytes")

const maxCookieBytes = 4096

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Store defines the per-request session operations.
type Store interface {
	// Get returns the value stored under key in the request's session.
	Get(r *http.Request, key string) (string, bool)
	// Set writes key=value into the session and emits the updated cookie on w.
	Set(w http.ResponseWriter, r *http.Request, key, value string) error
	// Clear expires the session cookie.
	Clear(w http.ResponseWriter, r *http.Request)
	// Cookie builds the updated session cookie without writing it.
	Cookie(r *http.Request, key, value string) (*http.Cookie, error)
	// Load returns the decoded claims of the request's session.
	Load(r *http.Request) (jwt.Claims, bool)
}

// Config defines the inputs for building a cookie Store.
type Config struct {
	// Secret is the master secret from which signing and sealing keys are derived.
	Secret string
	// CookieName is the name of the session cookie.
	CookieName string
	// Secure sets the Secure cookie attribute.
	Secure bool
	// TTL is the cookie Max-Age. Zero produces a browser-session cookie.
	TTL time.Duration
	// MaxAge is the signed expiry of the session.
	MaxAge time.Duration
	// Clock provides the current time.
	Clock clocker
	// UUID generates token IDs.
	UUID generator
}

// CookieStore implements Store.
type CookieStore struct {
	name   string
	secure bool
	ttl    time.Duration
	token  jwt.JWT
	sealer sealer.Sealer
}

// NewCookieStore derives keys from cfg.Secret and returns a ready store.
func NewCookieStore(cfg Config) (*CookieStore, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}

	signKey, err := deriveKey(cfg.Secret, "otpgate session signing", 64)
	if err != nil {
		return nil, err
	}
	sealKey, err := deriveKey(cfg.Secret, "otpgate session sealing", 32)
	if err != nil {
		return nil, err
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	token, err := jwt.NewHS512(jwt.Config{
		Secret:    signKey,
		Issuer:    subject,
		Audiences: []string{audience},
		TTL:       maxAge,
		Clock:     cfg.Clock,
		UUID:      cfg.UUID,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}

	return &CookieStore{
		name:   name,
		secure: cfg.Secure,
		ttl:    cfg.TTL,
		token:  token,
		sealer: sealer.NewAESGCM(sealer.StaticKeyProvider{KeyBytes: sealKey}),
	}, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}
	return key, nil
}

// Load decodes the session cookie on r.
func (s *CookieStore) Load(r *http.Request) (jwt.Claims, bool) {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return jwt.Claims{}, false
	}

	sealed, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return jwt.Claims{}, false
	}

	raw, err := s.sealer.Open(sealed, sealer.PurposeSession)
	if err != nil {
		return jwt.Claims{}, false
	}

	claims, err := s.token.Verify(string(raw))
	if err != nil {
		return jwt.Claims{}, false
	}

	return claims, true
}

// Get returns the value stored under key.
func (s *CookieStore) Get(r *http.Request, key string) (string, bool) {
	claims, ok := s.Load(r)
	if !ok {
		return "", false
	}
	v, ok := claims.Values[key]
	return v, ok
}

// Cookie merges key=value into the request's session and returns the cookie
// carrying the result.
func (s *CookieStore) Cookie(r *http.Request, key, value string) (*http.Cookie, error) {
	values := map[string]string{}
	if claims, ok := s.Load(r); ok {
		values = maps.Clone(claims.Values)
		if values == nil {
			values = map[string]string{}
		}
	}
	values[key] = value

	token, err := s.token.Generate(subject, values)
	if err != nil {
		return nil, fmt.Errorf("session: sign: %w", err)
	}

	sealed, err := s.sealer.Seal([]byte(token), sealer.PurposeSession)
	if err != nil {
		return nil, fmt.Errorf("session: seal: %w", err)
	}

	c := s.base()
	c.Value = base64.RawURLEncoding.EncodeToString(sealed)
	if s.ttl > 0 {
		c.MaxAge = int(s.ttl / time.Second)
	}

	if len(c.String()) > maxCookieBytes {
		return nil, ErrCookieTooLarge
	}

	return c, nil
}

// Set stores key=value and writes the cookie.
func (s *CookieStore) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	c, err := s.Cookie(r, key, value)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

// Clear expires the cookie on the client.
func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) {
	c := s.base()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (s *CookieStore) base() *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
