package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by transport and graph operations issued before a
	// buffer has been loaded.
	ErrNotReady = errors.New("audio not ready")
	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("audio graph disposed")
	// ErrUnknownStem is returned when a stem id has no signal path.
	ErrUnknownStem = errors.New("unknown stem")
)

// LoadErrorKind classifies why an audio asset could not be loaded.
type LoadErrorKind string

const (
	LoadErrorFetch       LoadErrorKind = "fetch"
	LoadErrorDecode      LoadErrorKind = "decode"
	LoadErrorUnsupported LoadErrorKind = "unsupported"
)

// AudioLoadError reports a failed fetch or decode so callers can tell "still
// loading" apart from "failed to decode".
type AudioLoadError struct {
	URL  string
	Kind LoadErrorKind
	Err  error
}

func (e *AudioLoadError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("audio %s failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("audio %s failed for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *AudioLoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err carries an AudioLoadError.
func IsLoadError(err error) bool {
	var loadErr *AudioLoadError
	return errors.As(err, &loadErr)
}
