package separation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stemdeck/internal/services"
)

// CodeRateLimited is the backend error code for throttled requests.
const CodeRateLimited = "RATE_LIMITED"

type errorBody struct {
	Error             string   `json:"error"`
	Message           string   `json:"message"`
	Code              string   `json:"code"`
	RetryAfterSeconds *float64 `json:"retryAfterSeconds"`
}

func (b errorBody) text() string {
	if msg := strings.TrimSpace(b.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(b.Message)
}

// HTTPStatusError is a non-2xx response from the service.
type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("separation: %s %s: http %d: %s", e.Method, e.Path, e.StatusCode, detail)
}

// Unwrap maps the status to a services marker.
func (e *HTTPStatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return services.ErrAuthRequired
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500:
		return services.ErrTransient
	case e.StatusCode == http.StatusBadRequest,
		e.StatusCode == http.StatusRequestEntityTooLarge,
		e.StatusCode == http.StatusUnsupportedMediaType,
		e.StatusCode == http.StatusUnprocessableEntity:
		return services.ErrInput
	default:
		return services.ErrJob
	}
}

// UserMessage prefers the message supplied by the service. Auth and
// not-found responses defer to the generic marker text.
func (e *HTTPStatusError) UserMessage() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode >= 500 {
		return "The separation service is unavailable. Please try again shortly."
	}
	return fmt.Sprintf("Request failed (%d %s).", e.StatusCode, http.StatusText(e.StatusCode))
}

// RateLimitedError reports a throttled request. Message is the service text
// and is shown to the user unchanged, followed by a wait hint.
type RateLimitedError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("separation: rate limited, retry after %s", e.RetryAfter)
	}
	return "separation: rate limited"
}

// Unwrap returns services.ErrRateLimited.
func (e *RateLimitedError) Unwrap() error {
	return services.ErrRateLimited
}

// UserMessage joins the service message with a wait hint.
func (e *RateLimitedError) UserMessage() string {
	hint := "Please wait a moment before trying again."
	if e.RetryAfter > 0 {
		hint = fmt.Sprintf("Please wait %s before trying again.", humanWait(e.RetryAfter))
	}
	if e.Message == "" {
		return "Too many requests. " + hint
	}
	return e.Message + " " + hint
}

func humanWait(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	switch {
	case seconds <= 1:
		return "1 second"
	case seconds < 120:
		return fmt.Sprintf("%d seconds", seconds)
	default:
		return fmt.Sprintf("%d minutes", int(math.Ceil(float64(seconds)/60)))
	}
}

func statusError(method, path string, resp *http.Response, body []byte) error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode == http.StatusTooManyRequests || strings.EqualFold(parsed.Code, CodeRateLimited) {
		wait, _ := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		if parsed.RetryAfterSeconds != nil && *parsed.RetryAfterSeconds > 0 {
			wait = time.Duration(*parsed.RetryAfterSeconds * float64(time.Second))
		}
		return &RateLimitedError{RetryAfter: wait, Message: parsed.text()}
	}
	return &HTTPStatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Code:       parsed.Code,
		Message:    parsed.text(),
		Body:       strings.TrimSpace(string(body)),
	}
}

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if wait := when.Sub(now); wait > 0 {
		return wait, true
	}
	return 0, true
}
