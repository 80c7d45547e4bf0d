package router

import (
	"net/http"
	"regexp"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/uid"
)

const (
	// HeaderCorrelationID is the canonical header used to track requests end-to-end.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is an accepted alternative header name used by some proxies.
	HeaderRequestID = "X-Request-ID"
)

// reCorrelationID bounds what a caller may inject into logs and audit events.
var reCorrelationID = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid, found := lo.Find(
				[]string{r.Header.Get(HeaderCorrelationID), r.Header.Get(HeaderRequestID)},
				reCorrelationID.MatchString,
			)
			if !found && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
