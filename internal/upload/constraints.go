// Package upload validates a selected audio file against the limits the
// separation service advertises before anything is sent over the network.
package upload

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"stemdeck/internal/logging"
)

// DefaultMaxBytes is the fallback upload limit (100 MiB).
const DefaultMaxBytes int64 = 100 << 20

// Constraints are the accepted types and size limit for uploads.
type Constraints struct {
	MIMETypes  []string `json:"mimeTypes"`
	Extensions []string `json:"extensions"`
	MaxBytes   int64    `json:"maxBytes"`
	// Fallback is set when the values did not come from the service.
	Fallback bool `json:"-"`
}

// Source fetches constraints from the service.
type Source interface {
	Constraints(ctx context.Context) (Constraints, error)
}

// Fallback returns the hardcoded limits used when the service is unreachable.
func Fallback() Constraints {
	return Constraints{
		MIMETypes:  []string{"audio/mpeg", "audio/wav", "audio/x-wav", "audio/flac", "audio/mp4", "audio/ogg"},
		Extensions: []string{"mp3", "wav", "flac", "m4a", "ogg"},
		MaxBytes:   DefaultMaxBytes,
		Fallback:   true,
	}
}

// Resolve asks src for constraints and falls back to the hardcoded limits when
// the request fails. Missing fields in the response are filled from the
// fallback.
func Resolve(ctx context.Context, src Source, logger *slog.Logger) Constraints {
	fallback := Fallback()
	if src == nil {
		return fallback
	}
	got, err := src.Constraints(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "upload constraints unavailable; using built-in limits", "constraints_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend.base_url and that the service is running"),
			logging.String(logging.FieldImpact, "files are validated against default limits"),
		)
		return fallback
	}
	got = got.normalized()
	if got.MaxBytes <= 0 {
		got.MaxBytes = fallback.MaxBytes
	}
	if len(got.MIMETypes) == 0 && len(got.Extensions) == 0 {
		got.MIMETypes = fallback.MIMETypes
		got.Extensions = fallback.Extensions
	}
	return got
}

func (c Constraints) normalized() Constraints {
	out := Constraints{MaxBytes: c.MaxBytes, Fallback: c.Fallback}
	for _, m := range c.MIMETypes {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			out.MIMETypes = append(out.MIMETypes, m)
		}
	}
	for _, e := range c.Extensions {
		if e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), "."); e != "" {
			out.Extensions = append(out.Extensions, e)
		}
	}
	return out
}

// Accepts reports whether a file with name and mimeType is an accepted type.
func (c Constraints) Accepts(name, mimeType string) bool {
	c = c.normalized()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext != "" && slices.Contains(c.Extensions, ext) {
		return true
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType != "" && slices.Contains(c.MIMETypes, mimeType)
}

// AcceptList renders the accepted extensions for help and error text.
func (c Constraints) AcceptList() string {
	exts := c.normalized().Extensions
	if len(exts) == 0 {
		return strings.Join(c.normalized().MIMETypes, ", ")
	}
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = "." + e
	}
	return strings.Join(out, ", ")
}
