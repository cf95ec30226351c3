package mockbackend

import (
	"math"

	"stemdeck/internal/audio"
	"stemdeck/internal/stems"
)

const (
	bassCrossoverHz = 150.0
	airCrossoverHz  = 4000.0
)

// split derives stems from a stereo mix. Centre content (mid) stands in for
// vocals and the stereo difference (side) for the accompaniment; the four-stem
// set further splits mid and side at fixed crossovers so the stems still sum
// back to the mid/side pair.
func split(buf *audio.Buffer, set stems.Set) map[stems.Name]*audio.Buffer {
	left, right := buf.Stereo()
	frames := len(left)
	mid := make([]float32, frames)
	side := make([]float32, frames)
	for i := 0; i < frames; i++ {
		mid[i] = (left[i] + right[i]) / 2
		side[i] = (left[i] - right[i]) / 2
	}

	rate := buf.SampleRate
	out := make(map[stems.Name]*audio.Buffer, 4)
	switch set {
	case stems.SetFour:
		bass := lowpass(mid, bassCrossoverHz, rate)
		other := lowpass(side, airCrossoverHz, rate)
		out[stems.Vocals] = dual(subtract(mid, bass), rate)
		out[stems.Bass] = dual(bass, rate)
		out[stems.Drums] = dual(subtract(side, other), rate)
		out[stems.Other] = dual(other, rate)
	default:
		out[stems.Vocals] = dual(mid, rate)
		out[stems.NoVocals] = dual(side, rate)
	}
	return out
}

func lowpass(in []float32, cutoff float64, sampleRate int) []float32 {
	out := make([]float32, len(in))
	if sampleRate <= 0 {
		return out
	}
	dt := 1 / float64(sampleRate)
	rc := 1 / (2 * math.Pi * cutoff)
	alpha := float32(dt / (rc + dt))
	var prev float32
	for i, v := range in {
		prev += alpha * (v - prev)
		out[i] = prev
	}
	return out
}

func subtract(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func dual(mono []float32, sampleRate int) *audio.Buffer {
	right := make([]float32, len(mono))
	copy(right, mono)
	return &audio.Buffer{SampleRate: sampleRate, Channels: [][]float32{mono, right}}
}
