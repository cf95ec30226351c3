package testsupport

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"stemdeck/internal/audio"
)

// ToneBuffer returns a stereo sine at freq Hz. The right channel is inverted
// when antiphase is true so mid/side splits produce distinct stems.
func ToneBuffer(sampleRate int, seconds, freq float64, antiphase bool) *audio.Buffer {
	frames := int(seconds * float64(sampleRate))
	buf := audio.NewBuffer(sampleRate, 2, frames)
	for i := 0; i < frames; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		buf.Channels[0][i] = v
		if antiphase {
			buf.Channels[1][i] = -v
		} else {
			buf.Channels[1][i] = v
		}
	}
	return buf
}

// ToneWAV encodes ToneBuffer as WAV bytes.
func ToneWAV(t testing.TB, sampleRate int, seconds, freq float64) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	WriteToneWAV(t, path, sampleRate, seconds, freq)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read tone: %v", err)
	}
	return data
}

// WriteToneWAV writes a tone fixture to path.
func WriteToneWAV(t testing.TB, path string, sampleRate int, seconds, freq float64) {
	t.Helper()

	if err := audio.WriteWAVFile(path, ToneBuffer(sampleRate, seconds, freq, false)); err != nil {
		t.Fatalf("write tone %s: %v", path, err)
	}
}

// MustDecode decodes data or fails the test.
func MustDecode(t testing.TB, data []byte) *audio.Buffer {
	t.Helper()

	buf, err := audio.Decode(bytes.Clone(data))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return buf
}
