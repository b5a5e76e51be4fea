package inbound

import (
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/gate/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
)

// HTTPEndpoint exposes the QR-code and verify handlers.
type HTTPEndpoint struct {
	uc         uc
	routes     entity.Routes
	session    session.Store
	sessionKey string
}

// QRCode renders the enrollment page for authenticator apps.
func (h *HTTPEndpoint) QRCode(r *router.Request) (any, error) {
	out, err := h.uc.QRCode(r.Context())
	if err != nil {
		return nil, err
	}

	body, err := qrCodePage(out.DataURL)
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	return router.HTML{Body: body}, nil
}

// Verify checks the submitted token and, on success, issues the session
// cookie and redirects to the destination.
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	ctx := r.Context()

	if jwt.GetAuth(ctx) != nil {
		return router.Redirect{Location: h.routes.Destination}, nil
	}

	token := tokenFromRequest(r)
	if token == "" {
		return challenge(r.URL.Path), nil
	}

	err := h.uc.VerifyToken(ctx, usecase.VerifyTokenInput{
		Token:      token,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
	})
	if goerror.CodeOf(err) == goerror.CodeUnauthorized {
		return challenge(r.URL.Path), nil
	}
	if err != nil {
		return nil, err
	}

	cookie, err := h.session.Cookie(r.Request, h.sessionKey, "true")
	if err != nil {
		slog.ErrorContext(ctx, "failed to build session cookie", "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.DebugContext(ctx, "totp verified", "remote_addr", r.RemoteAddr, "redirect_to", h.routes.Destination)

	return router.Redirect{
		Location: h.routes.Destination,
		Cookies:  []*http.Cookie{cookie},
	}, nil
}
