package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat marks payloads that are neither PCM WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Format names a container stemdeck can decode.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
)

// Sniff inspects the leading bytes of data.
func Sniff(data []byte) Format {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return FormatWAV
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return FormatMP3
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}
	return FormatUnknown
}

// Decode decodes a complete WAV or MP3 payload.
func Decode(data []byte) (*Buffer, error) {
	switch Sniff(data) {
	case FormatWAV:
		return DecodeWAV(bytes.NewReader(data))
	case FormatMP3:
		return DecodeMP3(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
}

// DecodeWAV decodes integer PCM WAV data.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav header")
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, errors.New("wav has no channels")
	}

	channels := pcm.Format.NumChannels
	bitDepth := pcm.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, bitDepth)
	}

	frames := len(pcm.Data) / channels
	buf := NewBuffer(pcm.Format.SampleRate, channels, frames)
	scale := float32(int64(1) << (bitDepth - 1))
	for i := 0; i < frames*channels; i++ {
		v := pcm.Data[i]
		var sample float32
		if bitDepth == 8 {
			sample = float32(v-128) / 128
		} else {
			sample = float32(v) / scale
		}
		buf.Channels[i%channels][i/channels] = clampSample(sample)
	}
	return buf, nil
}

// DecodeMP3 decodes an MP3 stream. The decoder always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (*Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3 stream: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 samples: %w", err)
	}
	const bytesPerFrame = 4
	frames := len(raw) / bytesPerFrame
	if frames == 0 {
		return nil, errors.New("mp3 stream has no samples")
	}
	buf := NewBuffer(dec.SampleRate(), 2, frames)
	for i := 0; i < frames; i++ {
		off := i * bytesPerFrame
		left := int16(uint16(raw[off]) | uint16(raw[off+1])<<8)
		right := int16(uint16(raw[off+2]) | uint16(raw[off+3])<<8)
		buf.Channels[0][i] = float32(left) / 32768
		buf.Channels[1][i] = float32(right) / 32768
	}
	return buf, nil
}

// ProbeDuration returns the duration in seconds without decoding all samples
// when the container allows it.
func ProbeDuration(r io.ReadSeeker) (float64, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind: %w", err)
	}
	switch Sniff(head[:n]) {
	case FormatWAV:
		dec := wav.NewDecoder(r)
		d, err := dec.Duration()
		if err != nil {
			return 0, fmt.Errorf("wav duration: %w", err)
		}
		return d.Seconds(), nil
	case FormatMP3:
		dec, err := mp3.NewDecoder(r)
		if err != nil {
			return 0, fmt.Errorf("open mp3 stream: %w", err)
		}
		length := dec.Length()
		if length <= 0 || dec.SampleRate() <= 0 {
			return 0, nil
		}
		return float64(length) / 4 / float64(dec.SampleRate()), nil
	default:
		return 0, ErrUnsupportedFormat
	}
}
