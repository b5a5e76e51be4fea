package jwt

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newTestJWT(t *testing.T, clk interface{ Now() time.Time }) *HS512 {
	t.Helper()

	j, err := NewHS512(Config{
		Secret:    bytes.Repeat([]byte("k"), 64),
		Issuer:    "otpgate",
		Audiences: []string{"otpgate-session"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      fixedID("jti-1"),
	})
	if err != nil {
		t.Fatalf("NewHS512() error = %v", err)
	}
	return j
}

func TestHS512_RoundTrip(t *testing.T) {
	// Arrange
	clk := clock.NewFrozen(time.Unix(1700000000, 0))
	j := newTestJWT(t, clk)

	// Act
	token, err := j.Generate("session", map[string]string{"auth": "true"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	claims, err := j.Verify(token)

	// Assert
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Value("auth") != "true" {
		t.Errorf("Value(auth) = %q, want true", claims.Value("auth"))
	}
	if claims.ID != "jti-1" || claims.Subject != "session" {
		t.Errorf("claims = %+v", claims.RegisteredClaims)
	}
}

func TestHS512_Expired(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(1700000000, 0))
	j := newTestJWT(t, clk)

	token, err := j.Generate("session", map[string]string{"auth": "true"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := j.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrTokenExpired)
	}
}

func TestHS512_WrongSecret(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(1700000000, 0))
	token, err := newTestJWT(t, clk).Generate("session", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	other, err := NewHS512(Config{
		Secret:    bytes.Repeat([]byte("z"), 64),
		Issuer:    "otpgate",
		Audiences: []string{"otpgate-session"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      fixedID("x"),
	})
	if err != nil {
		t.Fatalf("NewHS512() error = %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestNewHS512_ShortKey(t *testing.T) {
	if _, err := NewHS512(Config{Secret: []byte("short")}); !errors.Is(err, ErrSigningKeyTooShort) {
		t.Fatalf("NewHS512() error = %v, want %v", err, ErrSigningKeyTooShort)
	}
}

func TestAuthContext(t *testing.T) {
	ctx := context.Background()
	if GetAuth(ctx) != nil {
		t.Fatalf("expected nil claims on empty context")
	}

	ctx = SetAuth(ctx, Claims{Values: map[string]string{"auth": "true"}})
	if got := GetAuth(ctx); got == nil || got.Value("auth") != "true" {
		t.Fatalf("GetAuth() = %+v", got)
	}
}
