package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shandysiswandi/gocustody/internal/pkg/jwt"
)

// Enforcer decides whether a subject may perform an action on an object.
// *casbin.Enforcer satisfies it.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

func middlewareAuthentication(verifier jwt.JWT, publicEndpoints map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := publicEndpoints[r.Method]; ok {
				if _, skip := s[matchedRoutePath(r)]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			p := strings.Fields(r.Header.Get("Authorization"))
			if len(p) != 2 || !strings.EqualFold(p[0], "Bearer") {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(p[1])
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

// Authorize returns a per-route middleware that checks the authenticated
// guardian's role against object and action.
func (r *Router) Authorize(object, action string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			claims := jwt.GetAuth(req.Context())
			if claims == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}
			if r.enforcer == nil {
				writeJSON(w, errorResponse{Message: "Guardian not allowed"}, http.StatusForbidden)
				return
			}

			ok, err := r.enforcer.Enforce(claims.Role, object, action)
			if err != nil {
				slog.ErrorContext(req.Context(), "failed to enforce policy", "object", object, "action", action, "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			if !ok {
				slog.WarnContext(req.Context(), "guardian not allowed", "guardian_id", claims.GuardianID, "role", claims.Role, "object", object, "action", action)
				writeJSON(w, errorResponse{Message: "Guardian not allowed"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}
