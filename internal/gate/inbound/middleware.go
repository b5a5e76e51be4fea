package inbound

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/policy"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
)

// Gate decides, before routing, whether a request may proceed.
type Gate struct {
	routes     entity.Routes
	session    session.Store
	sessionKey string
	policy     policy.Policy
}

func NewGate(cfg Config) *Gate {
	return &Gate{
		routes:     cfg.Routes,
		session:    cfg.Session,
		sessionKey: cfg.SessionKey,
		policy:     cfg.Policy,
	}
}

// Decide classifies r. Claims are only meaningful for DecisionAuthenticated.
//
// The verify path is always deferred: its handler reads the token from the
// query or body and answers with the redirect or the challenge itself.
// Without a session, a path not in canonical form is rejected before any
// route or policy match.
func (g *Gate) Decide(r *http.Request) (entity.Decision, jwt.Claims) {
	if claims, ok := g.session.Load(r); ok && isTruthy(claims.Value(g.sessionKey)) {
		return entity.DecisionAuthenticated, claims
	}

	if cleanPath(r.URL.Path) != r.URL.Path {
		return entity.DecisionRejected, jwt.Claims{}
	}

	if r.URL.Path == g.routes.Verify {
		return entity.DecisionDeferred, jwt.Claims{}
	}

	if g.policy.Allow(policy.Anonymous, r.Method, r.URL.Path) {
		return entity.DecisionDeferred, jwt.Claims{}
	}

	return entity.DecisionRejected, jwt.Claims{}
}

// Middleware applies Decide to every request.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, claims := g.Decide(r)

		switch decision {
		case entity.DecisionAuthenticated:
			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		case entity.DecisionDeferred:
			next.ServeHTTP(w, r)
		default:
			slog.DebugContext(r.Context(), "request rejected without session", "method", r.Method, "path", r.URL.Path)
			challenge(g.routes.Verify).Render(w, r)
		}
	})
}

// cleanPath removes dot segments and repeated slashes from p, keeping a
// trailing slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	c := path.Clean(p)
	if strings.HasSuffix(p, "/") && c != "/" {
		c += "/"
	}
	return c
}

func isTruthy(v string) bool {
	return v == "true" || v == "1"
}
