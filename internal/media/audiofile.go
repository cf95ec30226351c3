package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"stemdeck/internal/audio"
	"stemdeck/internal/objecturl"
)

// AudioFile is a user-selected source file. Its playback URL is an object URL
// that must be released when the file is superseded.
type AudioFile struct {
	Name string
	Size int64
	Path string

	mu       sync.Mutex
	duration float64
	handle   *objecturl.Handle
}

// Open reads path and registers its bytes under a fresh object URL.
func Open(path string, registry *objecturl.Registry) (*AudioFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("no file selected")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	file := &AudioFile{Name: filepath.Base(path), Size: info.Size(), Path: path}
	if registry != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		file.handle = registry.Create(data)
	}
	return file, nil
}

// Extension returns the lowercased extension without the dot.
func (f *AudioFile) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// MIMEType guesses the content type from the extension.
func (f *AudioFile) MIMEType() string {
	ext := filepath.Ext(f.Name)
	if ext == "" {
		return "application/octet-stream"
	}
	if known, ok := audioMIMETypes[strings.ToLower(ext)]; ok {
		return known
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// URL returns the playback URL, or "" once released.
func (f *AudioFile) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle.URL()
}

// Duration returns the probed duration in seconds, 0 until the probe finishes
// or when the container could not be probed.
func (f *AudioFile) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

// Probe reads the container metadata in the background. The channel yields
// the duration once and is then closed.
func (f *AudioFile) Probe(ctx context.Context) <-chan float64 {
	out := make(chan float64, 1)
	go func() {
		defer close(out)
		duration := f.probe()
		if ctx.Err() != nil {
			return
		}
		f.mu.Lock()
		f.duration = duration
		f.mu.Unlock()
		out <- duration
	}()
	return out
}

func (f *AudioFile) probe() float64 {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return 0
	}
	duration, err := audio.ProbeDuration(bytes.NewReader(data))
	if err != nil || duration < 0 {
		return 0
	}
	return duration
}

// Release revokes the playback URL. Safe to call more than once.
func (f *AudioFile) Release() {
	f.mu.Lock()
	handle := f.handle
	f.handle = nil
	f.mu.Unlock()
	handle.Release()
}
