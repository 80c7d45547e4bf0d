package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/gocustody/internal/pkg/goerror"
)

const maxBodyBytes = 64 * 1024

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// GetParam reads a trimmed path parameter stored by httprouter.
func (r *Request) GetParam(key string) string {
	return strings.TrimSpace(httprouter.ParamsFromContext(r.Context()).ByName(key))
}

// DecodeBody decodes exactly one JSON document into dst. Unknown fields and
// trailing data are rejected.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
