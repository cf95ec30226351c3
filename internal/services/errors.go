package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers classify failures so callers can decide on retry and messaging
// without string matching.
var (
	ErrInput         = errors.New("invalid input")
	ErrAuthRequired  = errors.New("authentication required")
	ErrTransient     = errors.New("transient failure")
	ErrJob           = errors.New("job failed")
	ErrDecode        = errors.New("decode failed")
	ErrRateLimited   = errors.New("rate limited")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// UserFacing is implemented by errors that carry their own user-visible text.
type UserFacing interface {
	UserMessage() string
}

// Wrap builds an error message that includes component context while tagging
// it with marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether err may succeed when repeated without user action.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInput), errors.Is(err, ErrAuthRequired), errors.Is(err, ErrJob),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrConfiguration), errors.Is(err, ErrDecode):
		return false
	}
	return true
}

// UserMessage maps err onto the single message shown to the user. Errors that
// implement UserFacing win; otherwise the marker decides.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var facing UserFacing
	if errors.As(err, &facing) {
		if msg := strings.TrimSpace(facing.UserMessage()); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrAuthRequired):
		return "You are not signed in. Run `stemdeck login` and try again."
	case errors.Is(err, ErrNotFound):
		return "Job not found or expired. Please start a new separation."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	case errors.Is(err, ErrDecode):
		return "The separated audio could not be decoded."
	case errors.Is(err, ErrConfiguration):
		return "Configuration problem: " + err.Error()
	case errors.Is(err, ErrInput), errors.Is(err, ErrJob):
		return err.Error()
	default:
		return "Something went wrong talking to the separation service: " + err.Error()
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
