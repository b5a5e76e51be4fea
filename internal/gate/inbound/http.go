package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/gate/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/policy"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
)

type uc interface {
	VerifyToken(ctx context.Context, in usecase.VerifyTokenInput) error
	QRCode(ctx context.Context) (*usecase.QRCodeOutput, error)
}

// Config carries what the gate endpoints and middleware share.
type Config struct {
	Routes        entity.Routes
	Session       session.Store
	SessionKey    string
	Policy        policy.Policy
	QRCodeEnabled bool
}

// RegisterHTTPEndpoint installs the gate middleware on every route registered
// after it and adds the QR-code and verify endpoints.
func RegisterHTTPEndpoint(r *router.Router, uc uc, cfg Config) {
	r.Use(NewGate(cfg).Middleware)

	end := &HTTPEndpoint{
		uc:         uc,
		routes:     cfg.Routes,
		session:    cfg.Session,
		sessionKey: cfg.SessionKey,
	}

	if cfg.QRCodeEnabled {
		r.GET(cfg.Routes.QRCode, end.QRCode)
	}
	r.GET(cfg.Routes.Verify, end.Verify)
	r.POST(cfg.Routes.Verify, end.Verify)
}
