package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("query", "http://localhost:8000/query", cause)

	if !errors.Is(err, ErrNetworkFailure) {
		t.Error("expected match with ErrNetworkFailure")
	}
	if !errors.Is(err, cause) {
		t.Error("expected unwrap to reach the cause")
	}
	if !IsNetworkError(fmt.Errorf("outer: %w", err)) {
		t.Error("expected IsNetworkError through wrapping")
	}
}

func TestAPIErrorAccessors(t *testing.T) {
	err := NewAPIErrorWithBody(503, "http://localhost:8000/query", "overloaded", `{"detail": "overloaded"}`)
	wrapped := fmt.Errorf("query failed: %w", err)

	if got := GetHTTPStatus(wrapped); got != 503 {
		t.Errorf("status: got %d", got)
	}
	if got := GetEndpoint(wrapped); got != "http://localhost:8000/query" {
		t.Errorf("endpoint: got %q", got)
	}
	if got := GetResponseBody(wrapped); got != `{"detail": "overloaded"}` {
		t.Errorf("body: got %q", got)
	}
	if !IsAPIError(wrapped) {
		t.Error("expected IsAPIError")
	}
}

func TestParseErrorSentinel(t *testing.T) {
	err := NewParseError("no explanation found", "explanation")

	if !errors.Is(err, ErrInvalidResponse) {
		t.Error("expected match with ErrInvalidResponse")
	}
	if IsNetworkError(err) {
		t.Error("parse error must not look like a network error")
	}
}

func TestAppError(t *testing.T) {
	err := NewAppError("no documents ingested")

	if !errors.Is(err, ErrRemoteFailure) {
		t.Error("expected match with ErrRemoteFailure")
	}
	if !IsAppError(err) {
		t.Error("expected IsAppError")
	}
	if IsAppError(NewAPIError(500, "/query", "boom")) {
		t.Error("API error must not look like an app error")
	}
}

func TestAccessorsOnPlainError(t *testing.T) {
	err := errors.New("plain")

	if GetHTTPStatus(err) != 0 {
		t.Error("expected zero status for plain error")
	}
	if GetEndpoint(err) != "" {
		t.Error("expected empty endpoint for plain error")
	}
	if GetResponseBody(err) != "" {
		t.Error("expected empty body for plain error")
	}
}
