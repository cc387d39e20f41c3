package services_test

import (
	"errors"
	"testing"

	"slate/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "analyze", "provider call", "request failed", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "parse", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "analyze", "call", "", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "extract", "deadline", "", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "parse", "bad xml", "", nil), false},
		{"expired", services.Wrap(services.ErrExpired, "parse", "buffer", "", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestReasonStripsSentinelPrefix(t *testing.T) {
	err := services.Wrap(services.ErrExpired, "parse", "fetch script", "buffer key expired", nil)
	reason := services.Reason(err)
	if reason != "parse: fetch script: buffer key expired" {
		t.Fatalf("unexpected reason: %q", reason)
	}
}
