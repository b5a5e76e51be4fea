package app

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/shandysiswandi/otpgate/internal/gate"
	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/site"
	siteUsecase "github.com/shandysiswandi/otpgate/internal/site/usecase"
)

// initModules registers the gate first so its middleware covers every route
// registered after it, then /health, then the static site as the fallback.
func (a *App) initModules() {
	routes, err := a.settings.Routes()
	if err != nil {
		slog.Error("invalid gate routes", "error", err)
		os.Exit(1)
	}

	if err := gate.New(gate.Dependency{
		Router:        a.router,
		Goroutine:     a.goroutine,
		Messaging:     a.messaging,
		Session:       a.session,
		Replay:        a.replay,
		Instrument:    a.ins,
		Validator:     a.validator,
		Totp:          a.totp,
		HMAC:          a.hmac,
		EventID:       a.eventID,
		Clock:         a.clock,
		Routes:        routes,
		SessionKey:    a.settings.SessionKey,
		QRCodeEnabled: a.settings.QRCodeEnabled,
		QRCodeSize:    a.settings.QRCodeSize,
		PublicPaths:   a.settings.PublicPaths,
		Topic:         a.config.GetString("messaging.topic"),
	}); err != nil {
		slog.Error("failed to init module gate", "error", err)
		os.Exit(1)
	}

	a.router.GET(entity.HealthPath, a.health)
	a.router.Handle(http.MethodHead, entity.HealthPath, a.router.Adapt(a.health))

	if err := site.New(site.Dependency{
		Router:     a.router,
		Storage:    a.storage,
		Instrument: a.ins,
		Validator:  a.validator,
		Options: siteUsecase.Options{
			Listing:          a.config.GetBool("site.listing"),
			ShowHidden:       a.config.GetBool("site.show_hidden"),
			RedirectToSlash:  a.config.GetBool("site.redirect_to_slash"),
			LookupCompressed: a.config.GetBool("site.lookup_compressed"),
			Index:            a.config.GetArray("site.index"),
		},
	}); err != nil {
		slog.Error("failed to init module site", "error", err)
		os.Exit(1)
	}
}

func (a *App) health(*router.Request) (any, error) {
	if !a.ready.Load() {
		return router.Message{Status: http.StatusServiceUnavailable, Text: "unavailable"}, nil
	}
	return router.Message{Text: "ok"}, nil
}
