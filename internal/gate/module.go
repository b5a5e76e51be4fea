package gate

import (
	"fmt"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/gate/inbound"
	"github.com/shandysiswandi/otpgate/internal/gate/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/gate/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/policy"
	"github.com/shandysiswandi/otpgate/internal/pkg/replay"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

// DefaultSessionKey is the session entry marking a verified client.
const DefaultSessionKey = "2fa-verified"

type Dependency struct {
	Router     *router.Router             `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Session    session.Store              `validate:"required"`
	Replay     replay.Guard               `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Totp       otp.OTP                    `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	EventID    uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`

	Routes        entity.Routes
	SessionKey    string
	QRCodeEnabled bool
	QRCodeSize    int
	// PublicPaths are keyMatch2 patterns reachable with GET or HEAD without a session.
	PublicPaths []string
	Topic       string
}

// New wires the gate and registers it on dep.Router. It must run before any
// other route is registered so the decision engine guards them.
func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	if dep.SessionKey == "" {
		dep.SessionKey = DefaultSessionKey
	}

	pol, err := policy.New(anonymousRules(dep)...)
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument, dep.Topic)

	uc := usecase.New(usecase.Dependency{
		RepoMessaging: repoMsg,
		Validator:     dep.Validator,
		Totp:          dep.Totp,
		Replay:        dep.Replay,
		HMAC:          dep.HMAC,
		EventID:       dep.EventID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
		QRCodeSize:    dep.QRCodeSize,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.Config{
		Routes:        dep.Routes,
		Session:       dep.Session,
		SessionKey:    dep.SessionKey,
		Policy:        pol,
		QRCodeEnabled: dep.QRCodeEnabled,
	})

	return nil
}

func anonymousRules(dep Dependency) []policy.Rule {
	read := []string{http.MethodGet, http.MethodHead}

	rules := []policy.Rule{
		{Subject: policy.Anonymous, Path: dep.Routes.Verify, Methods: []string{http.MethodGet, http.MethodPost}},
		{Subject: policy.Anonymous, Path: entity.HealthPath, Methods: read},
	}
	if dep.QRCodeEnabled {
		rules = append(rules, policy.Rule{Subject: policy.Anonymous, Path: dep.Routes.QRCode, Methods: []string{http.MethodGet}})
	}
	for _, p := range dep.PublicPaths {
		rules = append(rules, policy.Rule{Subject: policy.Anonymous, Path: p, Methods: read})
	}

	return rules
}
