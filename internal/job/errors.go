package job

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"stemdeck/internal/audio"
	"stemdeck/internal/services"
	"stemdeck/internal/stems"
)

var (
	// ErrBusy rejects a submission while another job is in flight.
	ErrBusy = errors.New("a separation job is already running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("job controller closed")
	// ErrNothingToRetry is returned by Retry outside the error state.
	ErrNothingToRetry = errors.New("no failed job to retry")
	// ErrCancelled is returned by Submit when Cancel or a newer job superseded it.
	ErrCancelled = errors.New("job cancelled")
)

// FailedError is a job the service reported as failed.
type FailedError struct {
	JobID  string
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}

// Unwrap returns services.ErrJob.
func (e *FailedError) Unwrap() error { return services.ErrJob }

// UserMessage surfaces the backend reason.
func (e *FailedError) UserMessage() string {
	if e.Reason == "" {
		return "Separation failed. Please try again."
	}
	return e.Reason
}

// StalledError is raised when polling keeps failing or runs too long.
type StalledError struct {
	JobID    string
	Failures int
	Elapsed  time.Duration
	Err      error
}

func (e *StalledError) Error() string {
	if e.Failures > 0 {
		return fmt.Sprintf("job %s: status unavailable after %d consecutive attempts: %v", e.JobID, e.Failures, e.Err)
	}
	return fmt.Sprintf("job %s: no result after %s", e.JobID, e.Elapsed.Round(time.Second))
}

// Unwrap exposes both the transient marker and the last poll error.
func (e *StalledError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrTransient}
	}
	return []error{services.ErrTransient, e.Err}
}

// UserMessage explains the escalation.
func (e *StalledError) UserMessage() string {
	if e.Failures > 0 {
		return fmt.Sprintf("Lost contact with the separation service after %d attempts. Press retry to start again.", e.Failures)
	}
	return fmt.Sprintf("The separation did not finish within %s. Press retry to start again.", e.Elapsed.Round(time.Minute))
}

// StemError reports a stem that could not be fetched or decoded.
type StemError struct {
	Stem stems.Name
	Err  error
}

func (e *StemError) Error() string {
	return fmt.Sprintf("stem %s: %v", e.Stem, e.Err)
}

func (e *StemError) decodeFailure() bool {
	var loadErr *audio.AudioLoadError
	if errors.As(e.Err, &loadErr) {
		return loadErr.Kind != audio.LoadErrorFetch
	}
	return false
}

// Unwrap adds services.ErrDecode for decode failures.
func (e *StemError) Unwrap() []error {
	if e.decodeFailure() {
		return []error{services.ErrDecode, e.Err}
	}
	return []error{e.Err}
}

// UserMessage names the stem that broke the results.
func (e *StemError) UserMessage() string {
	label := strings.ToLower(stems.Lookup(e.Stem).Label)
	if e.decodeFailure() {
		return fmt.Sprintf("The %s stem could not be decoded. Press retry to separate again.", label)
	}
	return fmt.Sprintf("The %s stem could not be downloaded. Press retry to separate again.", label)
}
