package audio

import "math"

const correlationStride = 4

// stretcher reads a stereo signal from a start frame at a playback rate using
// waveform-similarity overlap-add (WSOLA). Segments are taken from the input
// at hop*rate spacing, nudged within a tolerance window to the offset that
// best continues the previous segment, and overlap-added with a Hann window
// at a fixed output hop, so tempo changes while pitch does not.
type stretcher struct {
	left, right []float32
	rate        float64

	frameSize int
	hop       int
	tolerance int
	window    []float32

	inPos   float64
	prev    int
	started bool
	flushed bool

	olaL, olaR   []float32
	pendL, pendR []float32
	pendOff      int

	direct    bool
	directPos int
}

func newStretcher(left, right []float32, sampleRate, startFrame int, rate float64) *stretcher {
	if startFrame < 0 {
		startFrame = 0
	}
	s := &stretcher{left: left, right: right, rate: ClampRate(rate)}
	if math.Abs(s.rate-1) < 1e-9 {
		s.direct = true
		s.directPos = startFrame
		return s
	}
	hop := sampleRate / 50
	if hop < 64 {
		hop = 64
	}
	s.hop = hop
	s.frameSize = hop * 2
	s.tolerance = hop / 2
	s.window = make([]float32, s.frameSize)
	for i := range s.window {
		s.window[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(s.frameSize)))
	}
	s.olaL = make([]float32, s.frameSize)
	s.olaR = make([]float32, s.frameSize)
	s.pendL = make([]float32, 0, hop)
	s.pendR = make([]float32, 0, hop)
	s.inPos = float64(startFrame)
	return s
}

// read fills dstL/dstR and returns the number of frames written. A short
// count means the input is exhausted.
func (s *stretcher) read(dstL, dstR []float32) int {
	if s.direct {
		n := len(s.left) - s.directPos
		if n <= 0 {
			return 0
		}
		if n > len(dstL) {
			n = len(dstL)
		}
		copy(dstL[:n], s.left[s.directPos:s.directPos+n])
		copy(dstR[:n], s.right[s.directPos:s.directPos+n])
		s.directPos += n
		return n
	}

	written := 0
	for written < len(dstL) {
		if s.pendOff >= len(s.pendL) {
			if !s.step() {
				break
			}
		}
		n := copy(dstL[written:], s.pendL[s.pendOff:])
		copy(dstR[written:written+n], s.pendR[s.pendOff:s.pendOff+n])
		s.pendOff += n
		written += n
	}
	return written
}

func (s *stretcher) step() bool {
	nominal := int(s.inPos)
	if nominal >= len(s.left) {
		if s.flushed || !s.started {
			return false
		}
		s.emitHop()
		s.flushed = true
		return true
	}

	chosen := nominal
	if s.started {
		chosen = s.bestOffset(nominal)
	}
	for i := 0; i < s.frameSize; i++ {
		w := s.window[i]
		s.olaL[i] += w * sampleAt(s.left, chosen+i)
		s.olaR[i] += w * sampleAt(s.right, chosen+i)
	}
	s.emitHop()
	s.prev = chosen
	s.started = true
	s.inPos += float64(s.hop) * s.rate
	return true
}

// emitHop moves the finished first hop of the overlap buffer into the pending
// output and shifts the remainder down.
func (s *stretcher) emitHop() {
	s.pendL = append(s.pendL[:0], s.olaL[:s.hop]...)
	s.pendR = append(s.pendR[:0], s.olaR[:s.hop]...)
	s.pendOff = 0
	copy(s.olaL, s.olaL[s.hop:])
	copy(s.olaR, s.olaR[s.hop:])
	for i := s.frameSize - s.hop; i < s.frameSize; i++ {
		s.olaL[i] = 0
		s.olaR[i] = 0
	}
}

// bestOffset searches around nominal for the segment whose start best matches
// the natural continuation of the previously chosen segment.
func (s *stretcher) bestOffset(nominal int) int {
	target := s.prev + s.hop
	best := nominal
	bestScore := math.Inf(-1)
	for delta := -s.tolerance; delta <= s.tolerance; delta++ {
		candidate := nominal + delta
		if candidate < 0 {
			continue
		}
		var dot, energy float64
		for i := 0; i < s.hop; i += correlationStride {
			a := float64(sampleAt(s.left, candidate+i) + sampleAt(s.right, candidate+i))
			b := float64(sampleAt(s.left, target+i) + sampleAt(s.right, target+i))
			dot += a * b
			energy += a * a
		}
		score := dot
		if energy > 0 {
			score = dot / math.Sqrt(energy)
		}
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best
}

func sampleAt(data []float32, i int) float32 {
	if i < 0 || i >= len(data) {
		return 0
	}
	return data[i]
}
