package app

import (
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

func newSettingsFrom(t *testing.T, yaml string) (*Settings, error) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml), config.WithDefaults(defaults), config.WithEnvAliases(envAliases))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	return loadSettings(cfg, v)
}

const validYAML = `
app:
  origin: https://files.example.com
totp:
  secret: JBSWY3DPEHPK3PXP
  label: ops@example.com
  issuer: Example
session:
  secret: 0123456789abcdef0123456789abcdef
  ttl_minutes: 60
`

func TestLoadSettings_Defaults(t *testing.T) {
	// Act
	s, err := newSettingsFrom(t, validYAML)

	// Assert
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", s.Address())
	}
	if !s.SecureCookie() {
		t.Errorf("SecureCookie() = false for https origin")
	}
	if s.TotpPeriod != 30 || s.TotpSkew != 1 || s.TotpDigits != 6 {
		t.Errorf("totp = %d/%d/%d", s.TotpPeriod, s.TotpSkew, s.TotpDigits)
	}
	if s.SessionTTL != time.Hour || s.SessionMaxAge != 24*time.Hour {
		t.Errorf("session ttl = %s, max age = %s", s.SessionTTL, s.SessionMaxAge)
	}
	if s.SessionKey != "2fa-verified" || s.SessionCookieName != "otpgate" {
		t.Errorf("session key/name = %q/%q", s.SessionKey, s.SessionCookieName)
	}
	if !s.QRCodeEnabled || s.ReplayEnabled {
		t.Errorf("qr/replay = %v/%v", s.QRCodeEnabled, s.ReplayEnabled)
	}
}

func TestLoadSettings_AsciiSecretAndLegacyEnv(t *testing.T) {
	t.Setenv("TWO_FA_SECRET", "Hello!")
	t.Setenv("YAR_SECRET", strings.Repeat("y", 40))

	s, err := newSettingsFrom(t, `
app:
  origin: http://localhost:8080
totp:
  secret_encoding: ascii
  label: ops
  issuer: Example
`)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.TotpSecret != "JBSWY3DPEE" {
		t.Errorf("TotpSecret = %q", s.TotpSecret)
	}
	if s.SessionSecret != strings.Repeat("y", 40) {
		t.Errorf("SessionSecret not read from YAR_SECRET")
	}
	if s.SecureCookie() {
		t.Errorf("SecureCookie() = true for http origin")
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing secret", yaml: "totp: {label: a, issuer: b}\nsession: {secret: 0123456789abcdef0123456789abcdef}\n"},
		{name: "short session secret", yaml: "totp: {secret: JBSWY3DPEHPK3PXP, label: a, issuer: b}\nsession: {secret: short}\n"},
		{name: "missing issuer", yaml: "totp: {secret: JBSWY3DPEHPK3PXP, label: a}\nsession: {secret: 0123456789abcdef0123456789abcdef}\n"},
		{name: "bad digits", yaml: "totp: {secret: JBSWY3DPEHPK3PXP, label: a, issuer: b, digits: 7}\nsession: {secret: 0123456789abcdef0123456789abcdef}\n"},
		{name: "bad replay driver", yaml: "totp: {secret: JBSWY3DPEHPK3PXP, label: a, issuer: b}\nsession: {secret: 0123456789abcdef0123456789abcdef}\ngate: {replay: {driver: etcd}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newSettingsFrom(t, tt.yaml); err == nil {
				t.Fatalf("loadSettings() error = nil, want error")
			}
		})
	}
}

func TestSettings_Routes(t *testing.T) {
	tests := []struct {
		name            string
		gate            string
		wantVerify      string
		wantQRCode      string
		wantDestination string
	}{
		{name: "no prefix", gate: "", wantVerify: "/verify", wantQRCode: "/qr-code", wantDestination: "/"},
		{name: "prefix", gate: "gate:\n  route_prefix: /auth\n", wantVerify: "/auth/verify", wantQRCode: "/auth/qr-code", wantDestination: "/auth/"},
		{name: "explicit destination", gate: "gate:\n  route_prefix: /auth\n  redirect_to: /docs/\n", wantVerify: "/auth/verify", wantQRCode: "/auth/qr-code", wantDestination: "/docs/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s, err := newSettingsFrom(t, validYAML+tt.gate)
			if err != nil {
				t.Fatalf("loadSettings() error = %v", err)
			}

			// Act
			routes, err := s.Routes()

			// Assert
			if err != nil {
				t.Fatalf("Routes() error = %v", err)
			}
			if routes.Verify != tt.wantVerify || routes.QRCode != tt.wantQRCode || routes.Destination != tt.wantDestination {
				t.Errorf("Routes() = verify %q, qr %q, destination %q", routes.Verify, routes.QRCode, routes.Destination)
			}
		})
	}
}
