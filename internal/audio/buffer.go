package audio

import "math"

// Buffer holds decoded PCM audio as planar float32 samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a silent buffer.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	data := make([][]float32, channels)
	for i := range data {
		data[i] = make([]float32, frames)
	}
	return &Buffer{SampleRate: sampleRate, Channels: data}
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Channel returns channel i, or nil when out of range.
func (b *Buffer) Channel(i int) []float32 {
	if b == nil || i < 0 || i >= len(b.Channels) {
		return nil
	}
	return b.Channels[i]
}

// Stereo returns the left/right pair used by the mixer. Mono buffers are
// duplicated onto both sides; extra channels are ignored.
func (b *Buffer) Stereo() ([]float32, []float32) {
	switch b.NumChannels() {
	case 0:
		return nil, nil
	case 1:
		return b.Channels[0], b.Channels[0]
	default:
		return b.Channels[0], b.Channels[1]
	}
}

// Peak returns the largest absolute sample value across all channels.
func (b *Buffer) Peak() float64 {
	var peak float64
	if b == nil {
		return 0
	}
	for _, ch := range b.Channels {
		for _, s := range ch {
			if v := math.Abs(float64(s)); v > peak {
				peak = v
			}
		}
	}
	return peak
}

func clampSample(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
