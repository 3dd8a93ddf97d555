package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew_DefaultStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeOutOfRange, http.StatusBadRequest},
		{CodeTokenNotFound, http.StatusNotFound},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeTickerUnavailable, http.StatusServiceUnavailable},
		{CodeSigningFailed, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code).StatusCode; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNew_MessageFallsBackToCode(t *testing.T) {
	err := New(Code("UNLISTED"))
	if err.Message != "UNLISTED" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestAppError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Internal(CodeSigningFailed, "order", cause)
	wrapped := fmt.Errorf("list orders: %w", err)

	if !errors.Is(wrapped, New(CodeSigningFailed)) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(wrapped, New(CodeInvalidArgument)) {
		t.Error("expected different code not to match")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause to be reachable")
	}
	if GetCode(wrapped) != CodeSigningFailed {
		t.Errorf("GetCode = %s", GetCode(wrapped))
	}
	if GetCode(cause) != CodeUnknownError {
		t.Errorf("GetCode(plain) = %s", GetCode(cause))
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Fatal("Wrap(nil) must be nil")
	}

	orig := OutOfRange("Page should start at 1")
	if got := Wrap(orig, CodeInternalError, "paginate"); got != orig || got.Context != "paginate" {
		t.Errorf("expected existing AppError to be returned with context, got %+v", got)
	}

	plain := Wrap(errors.New("io"), CodeCacheError, "redis")
	if plain.Code != CodeCacheError || plain.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected wrap result %+v", plain)
	}
}

func TestToResponse(t *testing.T) {
	err := OutOfRange("Page should start at 1").WithTraceID("abc")
	body := err.ToResponse()

	if body.Code != CodeOutOfRange || body.Reason != "Page should start at 1" || body.TraceID != "abc" {
		t.Errorf("unexpected body %+v", body)
	}
}
