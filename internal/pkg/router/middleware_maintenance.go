package router

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gocustody/internal/pkg/config"
)

const maintenanceAll = "*"

// middlewareMaintenance answers 503 for the routes listed under
// app.maintenance.endpoints. An entry is a route pattern, optionally prefixed
// by a method ("POST /api/v1/custody/challenges/:challenge_id/verify"), or
// "*" for every route except the public ones. The list is read per request so
// a config reload applies without a restart.
func middlewareMaintenance(cfg config.Config, public map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if underMaintenance(cfg.GetArray("app.maintenance.endpoints"), r, public) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func underMaintenance(entries []string, r *http.Request, public map[string]map[string]struct{}) bool {
	route := matchedRoutePath(r)
	if _, ok := public[r.Method][route]; ok {
		return false
	}

	return lo.SomeBy(entries, func(entry string) bool {
		if entry == maintenanceAll {
			return true
		}
		method, path, scoped := strings.Cut(entry, " ")
		if !scoped {
			return entry == route
		}
		return strings.EqualFold(method, r.Method) && strings.TrimSpace(path) == route
	})
}
