package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultAnalyserSize is the FFT size and ring length used when none is given.
const DefaultAnalyserSize = 2048

// Analyser keeps the most recent mixed mono samples for visualization.
type Analyser struct {
	mu     sync.Mutex
	ring   []float32
	next   int
	filled bool
	window []float64

	// fft holds work buffers and is guarded by spectrumMu.
	spectrumMu sync.Mutex
	fft        *fourier.FFT
	seq        []float64
	coeffs     []complex128
}

// NewAnalyser returns an analyser whose size is rounded up to a power of two.
func NewAnalyser(size int) *Analyser {
	if size <= 0 {
		size = DefaultAnalyserSize
	}
	n := 1
	for n < size {
		n <<= 1
	}
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return &Analyser{
		ring:   make([]float32, n),
		window: window,
		fft:    fourier.NewFFT(n),
		seq:    make([]float64, n),
	}
}

// Size returns the ring length.
func (a *Analyser) Size() int {
	return len(a.ring)
}

// Reset clears captured samples.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.ring {
		a.ring[i] = 0
	}
	a.next = 0
	a.filled = false
}

func (a *Analyser) writeStereo(interleaved []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(interleaved); i += 2 {
		a.ring[a.next] = (interleaved[i] + interleaved[i+1]) * 0.5
		a.next++
		if a.next == len(a.ring) {
			a.next = 0
			a.filled = true
		}
	}
}

// TimeDomain copies the most recent samples into dst, oldest first, and
// returns the count copied.
func (a *Analyser) TimeDomain(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyRecentLocked(dst)
}

func (a *Analyser) copyRecentLocked(dst []float32) int {
	available := a.next
	if a.filled {
		available = len(a.ring)
	}
	n := len(dst)
	if n > available {
		n = available
	}
	start := a.next - n
	if start < 0 {
		start += len(a.ring)
	}
	for i := 0; i < n; i++ {
		dst[i] = a.ring[(start+i)%len(a.ring)]
	}
	return n
}

// Frequency writes the magnitude spectrum of the ring (Hann window, real FFT)
// into dst, one value per bin up to Size()/2, and returns the bin count.
// Magnitudes are scaled so a full-scale sine peaks near 1.
func (a *Analyser) Frequency(dst []float64) int {
	size := len(a.ring)
	samples := make([]float32, size)
	a.mu.Lock()
	got := a.copyRecentLocked(samples)
	a.mu.Unlock()

	a.spectrumMu.Lock()
	defer a.spectrumMu.Unlock()
	offset := size - got
	clear(a.seq[:offset])
	for i := 0; i < got; i++ {
		a.seq[offset+i] = float64(samples[i]) * a.window[offset+i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.seq)

	bins := size / 2
	if len(dst) < bins {
		bins = len(dst)
	}
	scale := 4 / float64(size)
	for i := 0; i < bins; i++ {
		dst[i] = cmplx.Abs(a.coeffs[i]) * scale
	}
	return bins
}

// Level returns the RMS of the captured samples.
func (a *Analyser) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := a.next
	if a.filled {
		count = len(a.ring)
	}
	if count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < count; i++ {
		v := float64(a.ring[i])
		sum += v * v
	}
	return math.Sqrt(sum / float64(count))
}
