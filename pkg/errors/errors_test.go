package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NotFound("Auction"), http.StatusNotFound},
		{"validation", Validation("bad bid", nil), http.StatusUnprocessableEntity},
		{"conflict", Conflict("already claimed"), http.StatusConflict},
		{"forbidden", Forbidden("not your offer"), http.StatusForbidden},
		{"unauthorized", Unauthorized("who are you"), http.StatusUnauthorized},
		{"invalid input", InvalidInput("empty id"), http.StatusBadRequest},
		{"internal", Internal("boom", errors.New("x")), http.StatusInternalServerError},
		{"unavailable", Unavailable("bid broker", errors.New("x")), http.StatusServiceUnavailable},
		{"invariant", Invariant("two offers outstanding"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("already claimed")

	if got := AsAppError(appErr); got == nil || got.Code != CodeConflict {
		t.Errorf("AsAppError() failed to recover the error: %v", got)
	}

	got := AsAppError(errors.New("plain"))
	if got == nil || got.Code != CodeInternal {
		t.Errorf("plain error must convert to an internal error, got %v", got)
	}
	if got.StatusCode() != http.StatusInternalServerError {
		t.Errorf("converted error must map to 500, got %d", got.StatusCode())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Unavailable("bid broker", nil)) {
		t.Error("unavailable must be retryable")
	}
	if !IsRetryable(Timeout("store call")) {
		t.Error("timeout must be retryable")
	}
	if IsRetryable(Conflict("already claimed")) {
		t.Error("conflict must not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unclassified error must not be retryable")
	}
}
