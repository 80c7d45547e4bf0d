package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_StatusCode(t *testing.T) {
	cause := errors.New("redis: connection refused")

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{name: "Server", err: NewServer(cause), status: http.StatusInternalServerError, msg: "Internal server error"},
		{name: "Unavailable", err: NewUnavailable(cause), status: http.StatusServiceUnavailable, msg: "Service temporarily unavailable, please retry"},
		{name: "Business", err: NewBusiness("verification failed", CodeUnauthorized), status: http.StatusUnauthorized, msg: "verification failed"},
		{name: "InvalidInput", err: NewInvalidInput(cause), status: http.StatusUnprocessableEntity, msg: "Validation error"},
		{name: "InvalidFormat", err: NewInvalidFormat(), status: http.StatusBadRequest, msg: "Invalid request body"},
		{name: "UnknownCode", err: NewBusiness("odd", Code(99)), status: http.StatusInternalServerError, msg: "odd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gerr *Error
			if !errors.As(tt.err, &gerr) {
				t.Fatalf("not a *Error: %T", tt.err)
			}
			if gerr.StatusCode() != tt.status {
				t.Fatalf("status = %d, want %d", gerr.StatusCode(), tt.status)
			}
			if gerr.Msg() != tt.msg {
				t.Fatalf("msg = %q, want %q", gerr.Msg(), tt.msg)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	sentinel := errors.New("challenge: storage unavailable")
	wrapped := fmt.Errorf("issue: %w", NewUnavailable(sentinel))

	if !IsRetryable(wrapped) {
		t.Fatalf("wrapped unavailable must be retryable")
	}
	if !errors.Is(wrapped, sentinel) {
		t.Fatalf("cause must stay reachable")
	}
	if IsRetryable(NewServer(sentinel)) || IsRetryable(sentinel) {
		t.Fatalf("only CodeUnavailable is retryable")
	}
}

func TestNewInvalidInput_Fields(t *testing.T) {
	var gerr *Error
	if !errors.As(NewInvalidInput(nil, "response", "is required"), &gerr) {
		t.Fatalf("not a *Error")
	}
	if gerr.Fields()["response"] != "is required" {
		t.Fatalf("fields = %v", gerr.Fields())
	}

	if !errors.As(NewInvalidInput(nil, "dangling"), &gerr) || gerr.Code() != CodeInvalidFormat {
		t.Fatalf("odd pairs must be an invalid format")
	}
}
