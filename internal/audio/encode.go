package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV writes buf as 16-bit integer PCM.
func EncodeWAV(w io.WriteSeeker, buf *Buffer) error {
	if buf == nil || buf.NumChannels() == 0 {
		return errors.New("encode wav: empty buffer")
	}
	if buf.SampleRate <= 0 {
		return errors.New("encode wav: sample rate must be positive")
	}
	channels := buf.NumChannels()
	frames := buf.Frames()
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			v := float64(clampSample(buf.Channels[c][i]))
			data[i*channels+c] = int(math.Round(v * 32767))
		}
	}

	enc := wav.NewEncoder(w, buf.SampleRate, 16, channels, wavFormatPCM)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile encodes buf into path, creating parent directories.
func WriteWAVFile(path string, buf *Buffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	if err := EncodeWAV(file, buf); err != nil {
		file.Close()
		_ = os.Remove(path)
		return err
	}
	return file.Close()
}

// EncodeWAVBytes encodes buf as 16-bit PCM WAV in memory.
func EncodeWAVBytes(buf *Buffer) ([]byte, error) {
	w := &memWriteSeeker{}
	if err := EncodeWAV(w, buf); err != nil {
		return nil, err
	}
	return w.buf, nil
}

type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = m.pos + int(offset)
	case io.SeekEnd:
		next = len(m.buf) + int(offset)
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	m.pos = next
	return int64(m.pos), nil
}
