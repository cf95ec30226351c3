package audio

import (
	"math"
	"testing"
)

func drain(s *stretcher, block int) ([]float32, []float32) {
	var outL, outR []float32
	l := make([]float32, block)
	r := make([]float32, block)
	for {
		n := s.read(l, r)
		if n == 0 {
			return outL, outR
		}
		outL = append(outL, l[:n]...)
		outR = append(outR, r[:n]...)
	}
}

func TestStretcherOutputLengthTracksRate(t *testing.T) {
	const sampleRate = 8000
	src := sineBuffer(sampleRate, sampleRate*2, 330)
	left, right := src.Stereo()
	cases := []struct {
		rate float64
		want int
	}{
		{1, 16000},
		{0.5, 32000},
		{2, 8000},
		{1.5, 10667},
	}
	for _, tc := range cases {
		out, _ := drain(newStretcher(left, right, sampleRate, 0, tc.rate), 333)
		tolerance := sampleRate / 25
		if diff := len(out) - tc.want; diff < -tolerance || diff > tolerance {
			t.Fatalf("rate %v: expected ~%d frames, got %d", tc.rate, tc.want, len(out))
		}
	}
}

func TestStretcherBypassIsExactAtUnitRate(t *testing.T) {
	src := sineBuffer(8000, 1000, 440)
	left, right := src.Stereo()
	out, _ := drain(newStretcher(left, right, 8000, 200, 1), 64)
	if len(out) != 800 {
		t.Fatalf("expected 800 frames from offset 200, got %d", len(out))
	}
	for i := range out {
		if out[i] != left[200+i] {
			t.Fatalf("frame %d differs from source", i)
		}
	}
}

func TestStretcherPreservesPitch(t *testing.T) {
	const sampleRate = 8000
	const freq = 400.0
	src := sineBuffer(sampleRate, sampleRate, freq)
	left, right := src.Stereo()
	out, _ := drain(newStretcher(left, right, sampleRate, 0, 1.5), 256)

	// Count zero crossings in the steady middle of the output.
	mid := out[len(out)/4 : 3*len(out)/4]
	crossings := 0
	for i := 1; i < len(mid); i++ {
		if (mid[i-1] < 0) != (mid[i] < 0) {
			crossings++
		}
	}
	seconds := float64(len(mid)) / sampleRate
	measured := float64(crossings) / 2 / seconds
	if math.Abs(measured-freq) > freq*0.1 {
		t.Fatalf("expected pitch near %v Hz, measured %v Hz", freq, measured)
	}
}

func TestStretcherStartBeyondEnd(t *testing.T) {
	src := sineBuffer(8000, 100, 440)
	left, right := src.Stereo()
	out, _ := drain(newStretcher(left, right, 8000, 500, 0.75), 64)
	if len(out) != 0 {
		t.Fatalf("expected no output past the end, got %d frames", len(out))
	}
}
