package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
	"github.com/shandysiswandi/gocustody/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into a 500 and logs the frames
// of this module only. http.ErrAbortHandler is re-raised for net/http.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rvr)
			}

			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(r.Context(), "panic on the server", "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(r.Context(), "panic on the server", "because", rvr, "stack", string(stack))
			}

			writeError(r.Context(), w, goerror.NewServer(fmt.Errorf("panic: %v", rvr)))
		}()

		next.ServeHTTP(w, r)
	})
}
