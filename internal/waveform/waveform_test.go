package waveform

import (
	"errors"
	"math"
	"testing"
	"unicode/utf8"

	"stemdeck/internal/audio"
)

func rampBuffer(frames int) *audio.Buffer {
	buf := audio.NewBuffer(8000, 1, frames)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = float32(i) / float32(frames)
		if i%2 == 1 {
			buf.Channels[0][i] = -buf.Channels[0][i]
		}
	}
	return buf
}

func TestSampleNormalizesToOne(t *testing.T) {
	for _, resolution := range []int{1, 7, 100, 333} {
		values := Sample(rampBuffer(10007), resolution)
		if len(values) != resolution {
			t.Fatalf("resolution %d: got %d values", resolution, len(values))
		}
		var peak float64
		for _, v := range values {
			if v < 0 || v > 1 {
				t.Fatalf("resolution %d: value %v outside [0,1]", resolution, v)
			}
			peak = math.Max(peak, v)
		}
		if math.Abs(peak-1) > 1e-9 {
			t.Fatalf("resolution %d: expected peak 1, got %v", resolution, peak)
		}
	}
}

func TestSampleSilenceStaysZero(t *testing.T) {
	values := Sample(audio.NewBuffer(8000, 2, 4000), 50)
	for i, v := range values {
		if v != 0 {
			t.Fatalf("index %d: expected 0, got %v", i, v)
		}
	}
}

func TestSampleLastBlockReachesEnd(t *testing.T) {
	buf := audio.NewBuffer(8000, 1, 10)
	buf.Channels[0][9] = 1
	values := Sample(buf, 3)
	if values[2] != 1 || values[0] != 0 || values[1] != 0 {
		t.Fatalf("expected the final sample in the last block, got %v", values)
	}
}

func TestSampleShortBufferSpreadsAcrossPoints(t *testing.T) {
	buf := audio.NewBuffer(8000, 1, 5)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.5
	}
	values := Sample(buf, 10)
	if len(values) != 10 {
		t.Fatalf("got %d values", len(values))
	}
	for i, v := range values {
		if v != 1 {
			t.Fatalf("index %d: expected 1 for a constant buffer, got %v", i, values)
		}
	}
}

func TestSampleOrPlaceholder(t *testing.T) {
	values, placeholder := SampleOrPlaceholder(nil, errors.New("decode failed"), 64)
	if !placeholder || len(values) != 64 {
		t.Fatalf("expected placeholder of 64, got %d placeholder=%v", len(values), placeholder)
	}
	again := Placeholder(64)
	for i := range values {
		if values[i] != again[i] {
			t.Fatal("placeholder must be deterministic")
		}
	}
	if _, placeholder := SampleOrPlaceholder(rampBuffer(100), nil, 10); placeholder {
		t.Fatal("decoded buffer should not use placeholder")
	}
}

func TestSeekTargetClamps(t *testing.T) {
	tests := []struct {
		p, duration, want float64
	}{
		{0.5, 200, 100},
		{-0.3, 200, 0},
		{1.7, 200, 200},
		{math.NaN(), 200, 0},
	}
	for _, tt := range tests {
		if got := SeekTarget(tt.p, tt.duration); got != tt.want {
			t.Fatalf("SeekTarget(%v, %v) = %v, want %v", tt.p, tt.duration, got, tt.want)
		}
	}
}

func TestRenderWidthAndSplit(t *testing.T) {
	line, split := Render(Sample(rampBuffer(5000), 200), 40, 0.25)
	if utf8.RuneCountInString(line) != 40 {
		t.Fatalf("expected 40 glyphs, got %d", utf8.RuneCountInString(line))
	}
	if split != 10 {
		t.Fatalf("expected split at 10, got %d", split)
	}
	if line, _ := Render(nil, 10, 0); line != "" {
		t.Fatalf("expected empty render, got %q", line)
	}
}
