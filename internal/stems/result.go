package stems

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"stemdeck/internal/audio"
	"stemdeck/internal/textutil"
)

// Result is one separated stem ready for playback.
type Result struct {
	Name    Name
	Label   string
	Color   string
	Buffer  *audio.Buffer
	Blob    string
	URL     string
	Playing bool
	Volume  VolumeControl
}

// NewResult builds a result with catalog metadata and full volume.
func NewResult(name Name, buf *audio.Buffer, url string) *Result {
	info := Lookup(name)
	return &Result{
		Name:   name,
		Label:  info.Label,
		Color:  info.Color,
		Buffer: buf,
		URL:    url,
		Volume: NewVolumeControl(1),
	}
}

// Duration returns the decoded length in seconds, or 0 before decode.
func (r *Result) Duration() float64 {
	if r == nil || r.Buffer == nil {
		return 0
	}
	return r.Buffer.Duration()
}

// Export writes the decoded stem as a 16-bit WAV under dir and records the
// path as the result's blob. prefix is usually the source file's base name.
func (r *Result) Export(dir, prefix string) (string, error) {
	if r.Buffer == nil {
		return "", errors.New("stem not decoded")
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("export directory required")
	}
	path := filepath.Join(dir, textutil.StemFileBase(prefix, string(r.Name))+".wav")
	if err := audio.WriteWAVFile(path, r.Buffer); err != nil {
		return "", fmt.Errorf("export %s: %w", r.Name, err)
	}
	r.Blob = path
	return path, nil
}

// VolumeControl tracks a stem volume in [0, 1] and remembers the last
// non-zero level so unmute can restore it.
type VolumeControl struct {
	level    float64
	previous float64
}

// NewVolumeControl starts at level.
func NewVolumeControl(level float64) VolumeControl {
	v := VolumeControl{}
	v.Set(level)
	return v
}

// Level returns the current volume.
func (v VolumeControl) Level() float64 { return v.level }

// Muted reports whether the volume is zero.
func (v VolumeControl) Muted() bool { return v.level == 0 }

// Set changes the volume, clamped to [0, 1].
func (v *VolumeControl) Set(level float64) {
	switch {
	case level < 0:
		level = 0
	case level > 1:
		level = 1
	}
	if v.level > 0 {
		v.previous = v.level
	}
	v.level = level
}

// Mute silences the stem, keeping the current level for Unmute.
func (v *VolumeControl) Mute() {
	v.Set(0)
}

// Unmute restores the last non-zero level, or full volume when there is none.
func (v *VolumeControl) Unmute() {
	if v.level > 0 {
		return
	}
	if v.previous > 0 {
		v.level = v.previous
		return
	}
	v.level = 1
}

// Toggle mutes an audible stem and unmutes a muted one.
func (v *VolumeControl) Toggle() {
	if v.Muted() {
		v.Unmute()
		return
	}
	v.Mute()
}
