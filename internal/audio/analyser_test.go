package audio

import (
	"math"
	"testing"
)

func TestAnalyserFrequencyPeaksAtToneBin(t *testing.T) {
	const size = 512
	const sampleRate = 8000.0
	a := NewAnalyser(size)
	bin := 32
	freq := float64(bin) * sampleRate / size
	frames := make([]float32, size*2)
	for i := 0; i < size; i++ {
		v := float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
		frames[2*i] = v
		frames[2*i+1] = v
	}
	a.writeStereo(frames)

	spectrum := make([]float64, size/2)
	if n := a.Frequency(spectrum); n != size/2 {
		t.Fatalf("expected %d bins, got %d", size/2, n)
	}
	peak := 0
	for i := range spectrum {
		if spectrum[i] > spectrum[peak] {
			peak = i
		}
	}
	if peak != bin {
		t.Fatalf("expected peak at bin %d, got %d", bin, peak)
	}
	if spectrum[peak] < 0.8 || spectrum[peak] > 1.2 {
		t.Fatalf("expected near unit magnitude, got %v", spectrum[peak])
	}
}

func TestAnalyserTimeDomainOrder(t *testing.T) {
	a := NewAnalyser(4)
	a.writeStereo([]float32{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6})
	dst := make([]float32, 4)
	if n := a.TimeDomain(dst); n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}
	want := []float32{3, 4, 5, 6}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, dst)
		}
	}
}

func TestAnalyserLevelAndReset(t *testing.T) {
	a := NewAnalyser(8)
	if a.Level() != 0 {
		t.Fatal("empty analyser should report zero level")
	}
	a.writeStereo([]float32{0.5, 0.5, -0.5, -0.5})
	if got := a.Level(); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("expected RMS 0.5, got %v", got)
	}
	a.Reset()
	if a.Level() != 0 {
		t.Fatal("reset should clear samples")
	}
}

func TestNewAnalyserRoundsToPowerOfTwo(t *testing.T) {
	if got := NewAnalyser(1000).Size(); got != 1024 {
		t.Fatalf("expected 1024, got %d", got)
	}
	if got := NewAnalyser(0).Size(); got != DefaultAnalyserSize {
		t.Fatalf("expected default size, got %d", got)
	}
}

func TestAnalyserFrequencyZeroPadsPartialRing(t *testing.T) {
	const size = 512
	a := NewAnalyser(size)
	spectrum := make([]float64, size/2)
	a.Frequency(spectrum)
	for i, v := range spectrum {
		if v != 0 {
			t.Fatalf("empty ring: bin %d = %v", i, v)
		}
	}

	frames := make([]float32, size)
	for i := 0; i < size/2; i++ {
		v := float32(math.Sin(2 * math.Pi * 64 * float64(i) / size))
		frames[2*i] = v
		frames[2*i+1] = v
	}
	a.writeStereo(frames)
	a.Frequency(spectrum)
	peak := 0
	for i := range spectrum {
		if spectrum[i] > spectrum[peak] {
			peak = i
		}
	}
	if peak != 64 {
		t.Fatalf("expected peak at bin 64, got %d", peak)
	}
}
