package upload

import (
	"fmt"
	"strings"

	"stemdeck/internal/media"
	"stemdeck/internal/services"
)

// Reason classifies an InputError.
type Reason string

const (
	ReasonNoFile      Reason = "no_file"
	ReasonEmpty       Reason = "empty"
	ReasonTooLarge    Reason = "too_large"
	ReasonUnsupported Reason = "unsupported_type"
)

// InputError is a user-correctable problem with the selected file. It is
// raised before any network call.
type InputError struct {
	Reason Reason
	File   string
	Detail string
}

func (e *InputError) Error() string {
	if e.File == "" {
		return e.Detail
	}
	return e.File + ": " + e.Detail
}

// Unwrap tags the error with services.ErrInput.
func (e *InputError) Unwrap() error { return services.ErrInput }

// UserMessage implements services.UserFacing.
func (e *InputError) UserMessage() string { return e.Error() }

// Validate checks file against c.
func Validate(file *media.AudioFile, c Constraints) error {
	if file == nil || strings.TrimSpace(file.Path) == "" {
		return &InputError{Reason: ReasonNoFile, Detail: "no file selected"}
	}
	if file.Size <= 0 {
		return &InputError{Reason: ReasonEmpty, File: file.Name, Detail: "file is empty"}
	}
	if c.MaxBytes > 0 && file.Size > c.MaxBytes {
		return &InputError{
			Reason: ReasonTooLarge,
			File:   file.Name,
			Detail: fmt.Sprintf("file is %s; the limit is %s", humanBytes(file.Size), humanBytes(c.MaxBytes)),
		}
	}
	if !c.Accepts(file.Name, file.MIMEType()) {
		return &InputError{
			Reason: ReasonUnsupported,
			File:   file.Name,
			Detail: fmt.Sprintf("unsupported file type %s; accepted: %s", file.MIMEType(), c.AcceptList()),
		}
	}
	return nil
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib {
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	}
	if n >= 1<<10 {
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
