package mockbackend

import (
	"math"
	"testing"

	"stemdeck/internal/audio"
	"stemdeck/internal/stems"
)

func TestSplitFourSumsToMidSide(t *testing.T) {
	const frames = 800
	buf := audio.NewBuffer(8000, 2, frames)
	for i := 0; i < frames; i++ {
		buf.Channels[0][i] = float32(0.5 * math.Sin(2*math.Pi*60*float64(i)/8000))
		buf.Channels[1][i] = float32(0.3 * math.Sin(2*math.Pi*3000*float64(i)/8000))
	}
	parts := split(buf, stems.SetFour)
	if len(parts) != 4 {
		t.Fatalf("expected four parts, got %d", len(parts))
	}
	for i := 0; i < frames; i++ {
		l, r := buf.Channels[0][i], buf.Channels[1][i]
		mid := parts[stems.Vocals].Channels[0][i] + parts[stems.Bass].Channels[0][i]
		side := parts[stems.Drums].Channels[0][i] + parts[stems.Other].Channels[0][i]
		if math.Abs(float64(mid-(l+r)/2)) > 1e-5 || math.Abs(float64(side-(l-r)/2)) > 1e-5 {
			t.Fatalf("frame %d: parts do not sum back to mid/side", i)
		}
	}
}

func TestSplitTwoIsMidSide(t *testing.T) {
	buf := &audio.Buffer{SampleRate: 8000, Channels: [][]float32{{1, 0.5}, {1, -0.5}}}
	parts := split(buf, stems.SetTwo)
	if got := parts[stems.Vocals].Channels[0]; got[0] != 1 || got[1] != 0 {
		t.Fatalf("vocals = %v", got)
	}
	if got := parts[stems.NoVocals].Channels[1]; got[0] != 0 || got[1] != 0.5 {
		t.Fatalf("no_vocals = %v", got)
	}
}
