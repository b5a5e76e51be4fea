package app

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

// envAliases binds the legacy variable names onto config keys.
var envAliases = map[string][]string{
	"totp.secret":    {"TWO_FA_SECRET"},
	"totp.label":     {"TWO_FA_LABEL"},
	"totp.issuer":    {"TWO_FA_ISSUER"},
	"session.secret": {"YAR_SECRET"},
}

var defaults = map[string]any{
	"app.port":                   8080,
	"app.domain":                 "0.0.0.0",
	"app.public_dir":             "./public",
	"app.tz":                     "UTC",
	"app.server.max_goroutine":   100,
	"totp.secret_encoding":       otp.EncodingBase32,
	"totp.digits":                6,
	"totp.period":                otp.DefaultPeriod,
	"totp.skew":                  otp.DefaultSkew,
	"totp.algorithm":             "SHA1",
	"session.cookie_name":        "otpgate",
	"session.key":                "2fa-verified",
	"session.max_age_hours":      24,
	"gate.qr_code.enabled":       true,
	"gate.qr_code.size":          256,
	"gate.replay.driver":         "memory",
	"site.listing":               true,
	"site.redirect_to_slash":     true,
	"site.lookup_compressed":     true,
	"storage.driver":             "local",
	"messaging.topic":            "otpgate_verify_attempt",
	"messaging.retry.attempts":   3,
	"instrument.log_level":       "info",
	"instrument.log_mask_fields": []string{"token", "cookie", "set-cookie", "authorization"},
}

// Settings is the immutable snapshot of everything the gate needs. It is
// read once at startup; later config reloads never change it.
type Settings struct {
	Port      int    `validate:"required,min=1,max=65535"`
	Domain    string `validate:"required"`
	Origin    string `validate:"omitempty,url"`
	PublicDir string

	TotpSecret    string `validate:"required"`
	TotpLabel     string `validate:"required"`
	TotpIssuer    string `validate:"required"`
	TotpDigits    int    `validate:"oneof=6 8"`
	TotpPeriod    uint   `validate:"min=1"`
	TotpSkew      uint   `validate:"max=10"`
	TotpAlgorithm string

	SessionSecret     string `validate:"required,min=32"`
	SessionCookieName string `validate:"required"`
	SessionKey        string `validate:"required"`
	SessionTTL        time.Duration
	SessionMaxAge     time.Duration

	RoutePrefix   string
	RedirectTo    string
	QRCodeEnabled bool
	QRCodeSize    int `validate:"min=64,max=2048"`
	PublicPaths   []string
	ReplayEnabled bool
	ReplayDriver  string `validate:"oneof=memory redis"`
}

// Address is the listen address.
func (s *Settings) Address() string {
	return fmt.Sprintf("%s:%d", s.Domain, s.Port)
}

// SecureCookie reports whether cookies must carry the Secure attribute.
func (s *Settings) SecureCookie() bool {
	u, err := url.Parse(s.Origin)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}

// Routes is the gate route table. An empty RedirectTo sends verified clients
// to the prefix root.
func (s *Settings) Routes() (entity.Routes, error) {
	return entity.NewRoutes(s.RoutePrefix, s.RedirectTo)
}

// loadSettings snapshots cfg, converting the secret to Base32 and validating
// the result.
func loadSettings(cfg config.Config, v validator.Validator) (*Settings, error) {
	secret, err := otp.NormalizeSecret(cfg.GetString("totp.secret"), cfg.GetString("totp.secret_encoding"))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Port:      cfg.GetInt("app.port"),
		Domain:    strings.TrimSpace(cfg.GetString("app.domain")),
		Origin:    strings.TrimSpace(cfg.GetString("app.origin")),
		PublicDir: strings.TrimSpace(cfg.GetString("app.public_dir")),

		TotpSecret:    secret,
		TotpLabel:     cfg.GetString("totp.label"),
		TotpIssuer:    cfg.GetString("totp.issuer"),
		TotpDigits:    cfg.GetInt("totp.digits"),
		TotpPeriod:    cfg.GetUint("totp.period"),
		TotpSkew:      cfg.GetUint("totp.skew"),
		TotpAlgorithm: cfg.GetString("totp.algorithm"),

		SessionSecret:     cfg.GetString("session.secret"),
		SessionCookieName: cfg.GetString("session.cookie_name"),
		SessionKey:        cfg.GetString("session.key"),
		SessionTTL:        cfg.GetMinute("session.ttl_minutes"),
		SessionMaxAge:     cfg.GetHour("session.max_age_hours"),

		RoutePrefix:   strings.TrimSpace(cfg.GetString("gate.route_prefix")),
		RedirectTo:    strings.TrimSpace(cfg.GetString("gate.redirect_to")),
		QRCodeEnabled: cfg.GetBool("gate.qr_code.enabled"),
		QRCodeSize:    cfg.GetInt("gate.qr_code.size"),
		PublicPaths:   cfg.GetArray("gate.public_paths"),
		ReplayEnabled: cfg.GetBool("gate.replay.enabled"),
		ReplayDriver:  strings.ToLower(strings.TrimSpace(cfg.GetString("gate.replay.driver"))),
	}

	if err := v.Validate(s); err != nil {
		return nil, err
	}

	return s, nil
}
