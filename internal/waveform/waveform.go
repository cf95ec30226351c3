package waveform

import (
	"math"
	"strings"

	"stemdeck/internal/audio"
)

// DefaultResolution is the number of envelope points drawn per stem.
const DefaultResolution = 200

// Sample derives a resolution-point amplitude envelope from the first channel
// of buf. Each point is the mean absolute amplitude of a proportional block of
// samples; the envelope is normalized so its maximum is 1. Silence yields all
// zeros.
func Sample(buf *audio.Buffer, resolution int) []float64 {
	if resolution <= 0 {
		return nil
	}
	out := make([]float64, resolution)
	data := buf.Channel(0)
	if len(data) == 0 {
		return out
	}

	n := len(data)
	var peak float64
	for i := 0; i < resolution; i++ {
		start := i * n / resolution
		end := (i + 1) * n / resolution
		if end <= start {
			// fewer samples than points: repeat the nearest sample
			end = start + 1
		}
		var sum float64
		for _, s := range data[start:end] {
			sum += math.Abs(float64(s))
		}
		out[i] = sum / float64(end-start)
		if out[i] > peak {
			peak = out[i]
		}
	}
	if peak == 0 {
		return out
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

// Placeholder returns a deterministic synthetic envelope in [0, 1] for stems
// whose audio could not be decoded.
func Placeholder(resolution int) []float64 {
	if resolution <= 0 {
		return nil
	}
	out := make([]float64, resolution)
	for i := range out {
		x := float64(i) / float64(resolution)
		v := 0.55 + 0.25*math.Sin(2*math.Pi*x*3) + 0.15*math.Sin(2*math.Pi*x*11+0.7)
		out[i] = math.Max(0.05, math.Min(1, v))
	}
	return out
}

// SampleOrPlaceholder degrades to Placeholder when decoding failed.
func SampleOrPlaceholder(buf *audio.Buffer, err error, resolution int) ([]float64, bool) {
	if err != nil || buf == nil || buf.Frames() == 0 {
		return Placeholder(resolution), true
	}
	return Sample(buf, resolution), false
}

// SeekTarget maps a horizontal click position p to a time in seconds.
func SeekTarget(p, duration float64) float64 {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if duration < 0 {
		duration = 0
	}
	return p * duration
}

var levels = []rune("▁▂▃▄▅▆▇█")

// Render draws values as width block glyphs. Columns resample values by
// taking each column's peak. The returned split index marks where the
// played portion ends so callers can style both halves.
func Render(values []float64, width int, playedFraction float64) (string, int) {
	if width <= 0 || len(values) == 0 {
		return "", 0
	}
	var b strings.Builder
	for col := 0; col < width; col++ {
		start := col * len(values) / width
		end := (col + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var peak float64
		for _, v := range values[start:end] {
			if v > peak {
				peak = v
			}
		}
		idx := int(math.Round(peak * float64(len(levels)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(levels) {
			idx = len(levels) - 1
		}
		b.WriteRune(levels[idx])
	}
	split := int(math.Round(SeekTarget(playedFraction, 1) * float64(width)))
	return b.String(), split
}

// ColumnFraction converts a column click within width into a seek fraction.
func ColumnFraction(column, width int) float64 {
	if width <= 1 {
		return 0
	}
	return float64(column) / float64(width-1)
}
