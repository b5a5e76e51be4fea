package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

// middlewareMaintenance answers 503 while app.maintenance.enabled is set.
// The keys are read per request so a config file reload takes effect
// without a restart. Paths under app.maintenance.exempt keep working.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.GetBool("app.maintenance.enabled") || exempt(r.URL.Path, cfg.GetArray("app.maintenance.exempt")) {
				next.ServeHTTP(w, r)
				return
			}

			if after := cfg.GetInt("app.maintenance.retry_after_seconds"); after > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(after))
			}
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}

func exempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && (path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/")) {
			return true
		}
	}
	return false
}
