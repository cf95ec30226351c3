package services_test

import (
	"errors"
	"strings"
	"testing"

	"stemdeck/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "separation", "status", "request failed", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	for _, fragment := range []string{"separation", "status", "request failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error string %q", fragment, err)
		}
	}
	if got := services.Wrap(nil, "", "", "", nil); !errors.Is(got, services.ErrTransient) || !strings.Contains(got.Error(), "service failure") {
		t.Fatalf("unexpected default wrap: %v", got)
	}
}

type waitError struct{}

func (waitError) Error() string       { return "rate limited" }
func (waitError) UserMessage() string { return "Please wait 30 seconds before trying again." }

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"user facing wins", services.Wrap(services.ErrRateLimited, "separation", "submit", "", waitError{}), "Please wait 30 seconds before trying again."},
		{"auth", services.ErrAuthRequired, "stemdeck login"},
		{"not found", services.Wrap(services.ErrNotFound, "job", "poll", "", nil), "Job not found or expired"},
		{"job text", services.Wrap(services.ErrJob, "", "", "model crashed", nil), "model crashed"},
		{"unknown", errors.New("dial tcp: refused"), "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.UserMessage(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Fatalf("expected empty message, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Fatalf("UserMessage = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !services.IsRetryable(services.Wrap(services.ErrTransient, "x", "y", "", nil)) {
		t.Fatal("transient errors should be retryable")
	}
	if !services.IsRetryable(errors.New("eof")) {
		t.Fatal("unclassified errors should be retryable")
	}
	for _, marker := range []error{services.ErrInput, services.ErrAuthRequired, services.ErrNotFound, services.ErrJob} {
		if services.IsRetryable(services.Wrap(marker, "x", "y", "", nil)) {
			t.Fatalf("%v should not be retryable", marker)
		}
	}
	if services.IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
