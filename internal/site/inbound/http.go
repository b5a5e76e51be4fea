package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/site/usecase"
)

type uc interface {
	Resolve(ctx context.Context, in usecase.ResolveInput) (*usecase.ResolveOutput, error)
}

// RegisterHTTPEndpoint serves the site from every path no other route claims.
func RegisterHTTPEndpoint(r *router.Router, uc uc, lookupCompressed bool) {
	end := &HTTPEndpoint{uc: uc, vary: lookupCompressed}

	r.Fallback(r.Adapt(end.Serve))
}
