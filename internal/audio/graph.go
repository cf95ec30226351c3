package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultSampleRate = 44100
	DefaultRamp       = 20 * time.Millisecond
)

// AssetFetcher retrieves the raw bytes behind an audio URL.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to AssetFetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// GraphOptions configures a Graph.
type GraphOptions struct {
	SampleRate   int
	Ramp         time.Duration
	AnalyserSize int
	Fetcher      AssetFetcher
}

// Graph mixes independent stem paths into one stereo output. Each stem runs
// through its own stretcher and gain stage before the shared mix point; the
// mix feeds the analyser tap. Graph satisfies Source so a Transport can drive it.
type Graph struct {
	mu         sync.Mutex
	fetcher    AssetFetcher
	sampleRate int
	rampFrames int
	analyser   *Analyser

	tracks map[string]*track
	order  []string

	running  bool
	rate     float64
	position float64
	disposed bool

	scratchL, scratchR []float32
}

type track struct {
	left, right []float32
	frames      int

	gain     float32
	target   float32
	step     float32
	rampLeft int

	stretch *stretcher
}

// NewGraph builds an empty graph.
func NewGraph(opts GraphOptions) *Graph {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	ramp := opts.Ramp
	if ramp < 0 {
		ramp = 0
	} else if ramp == 0 {
		ramp = DefaultRamp
	}
	return &Graph{
		fetcher:    opts.Fetcher,
		sampleRate: sampleRate,
		rampFrames: int(ramp.Seconds() * float64(sampleRate)),
		analyser:   NewAnalyser(opts.AnalyserSize),
		tracks:     make(map[string]*track),
		rate:       1,
	}
}

// SampleRate returns the output sample rate.
func (g *Graph) SampleRate() int {
	return g.sampleRate
}

// Analyser returns the shared analysis tap.
func (g *Graph) Analyser() *Analyser {
	return g.analyser
}

// LoadAudioFile fetches url and decodes it. Every failure is an
// *AudioLoadError whose Kind tells fetch problems from decode problems.
func (g *Graph) LoadAudioFile(ctx context.Context, url string) (*Buffer, error) {
	g.mu.Lock()
	disposed := g.disposed
	fetcher := g.fetcher
	g.mu.Unlock()
	if disposed {
		return nil, ErrDisposed
	}
	if fetcher == nil {
		return nil, &AudioLoadError{URL: url, Kind: LoadErrorFetch, Err: errors.New("no asset fetcher configured")}
	}
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &AudioLoadError{URL: url, Kind: LoadErrorFetch, Err: err}
	}
	buf, err := Decode(data)
	if err != nil {
		kind := LoadErrorDecode
		if errors.Is(err, ErrUnsupportedFormat) {
			kind = LoadErrorUnsupported
		}
		return nil, &AudioLoadError{URL: url, Kind: kind, Err: err}
	}
	if buf.Frames() == 0 {
		return nil, &AudioLoadError{URL: url, Kind: LoadErrorDecode, Err: errors.New("no audio frames")}
	}
	return buf, nil
}

// AddStem attaches buf as the signal path for name, replacing any existing
// path with that name. Buffers at a different sample rate are resampled.
// Volume starts at 1.
func (g *Graph) AddStem(name string, buf *Buffer) error {
	if buf == nil || buf.Frames() == 0 {
		return ErrNotReady
	}
	buf = Resample(buf, g.sampleRate)
	left, right := buf.Stereo()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrDisposed
	}
	tr := &track{left: left, right: right, frames: len(left), gain: 1, target: 1}
	if g.running {
		tr.stretch = newStretcher(left, right, g.sampleRate, g.positionFrame(), g.rate)
	}
	if _, exists := g.tracks[name]; !exists {
		g.order = append(g.order, name)
	}
	g.tracks[name] = tr
	return nil
}

// RemoveStem detaches the path for name.
func (g *Graph) RemoveStem(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrDisposed
	}
	if _, ok := g.tracks[name]; !ok {
		return ErrUnknownStem
	}
	delete(g.tracks, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Stems lists attached stem names in insertion order.
func (g *Graph) Stems() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// SetVolume sets the target gain for name, clamped to [0, 1]. The gain moves
// linearly to the target over the ramp window as frames are rendered.
func (g *Graph) SetVolume(name string, volume float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrDisposed
	}
	tr, ok := g.tracks[name]
	if !ok {
		return ErrUnknownStem
	}
	target := float32(clampFloat(volume, 0, 1))
	tr.target = target
	if g.rampFrames <= 0 {
		tr.gain = target
		tr.rampLeft = 0
		return nil
	}
	tr.rampLeft = g.rampFrames
	tr.step = (target - tr.gain) / float32(g.rampFrames)
	return nil
}

// Volume returns the target gain for name.
func (g *Graph) Volume(name string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return 0, ErrDisposed
	}
	tr, ok := g.tracks[name]
	if !ok {
		return 0, ErrUnknownStem
	}
	return float64(tr.target), nil
}

// Duration returns the length of the longest attached stem in seconds.
func (g *Graph) Duration() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	frames := 0
	for _, tr := range g.tracks {
		if tr.frames > frames {
			frames = tr.frames
		}
	}
	return float64(frames) / float64(g.sampleRate)
}

// Start begins rendering every stem from offset seconds at rate.
func (g *Graph) Start(offset, rate float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrDisposed
	}
	if len(g.tracks) == 0 {
		return ErrNotReady
	}
	if offset < 0 {
		offset = 0
	}
	g.rate = ClampRate(rate)
	g.position = offset
	start := g.positionFrame()
	for _, tr := range g.tracks {
		tr.stretch = newStretcher(tr.left, tr.right, g.sampleRate, start, g.rate)
	}
	g.running = true
	return nil
}

// Stop halts rendering. Stop on a stopped or disposed graph does nothing.
func (g *Graph) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Graph) stopLocked() {
	g.running = false
	for _, tr := range g.tracks {
		tr.stretch = nil
	}
}

// Running reports whether the graph is producing audio.
func (g *Graph) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Position returns the source position of the render head in seconds.
func (g *Graph) Position() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

// Render fills dst with interleaved stereo frames and returns how many frames
// carried signal. Silence is written past that point. A stopped graph renders
// silence and returns 0; a running graph whose stems are all exhausted stops
// itself.
func (g *Graph) Render(dst []float32) int {
	for i := range dst {
		dst[i] = 0
	}
	frames := len(dst) / 2

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed || !g.running || frames == 0 {
		return 0
	}
	if cap(g.scratchL) < frames {
		g.scratchL = make([]float32, frames)
		g.scratchR = make([]float32, frames)
	}
	sl := g.scratchL[:frames]
	sr := g.scratchR[:frames]

	produced := 0
	for _, name := range g.order {
		tr := g.tracks[name]
		if tr.stretch == nil {
			continue
		}
		n := tr.stretch.read(sl, sr)
		if n > produced {
			produced = n
		}
		for i := 0; i < frames; i++ {
			gain := tr.nextGain()
			if i >= n {
				continue
			}
			dst[2*i] += sl[i] * gain
			dst[2*i+1] += sr[i] * gain
		}
	}
	for i := 0; i < produced*2; i++ {
		dst[i] = clampSample(dst[i])
	}
	g.analyser.writeStereo(dst[:produced*2])
	g.position += float64(produced) / float64(g.sampleRate) * g.rate

	if produced == 0 {
		g.stopLocked()
	}
	return produced
}

func (tr *track) nextGain() float32 {
	if tr.rampLeft > 0 {
		tr.gain += tr.step
		tr.rampLeft--
		if tr.rampLeft == 0 {
			tr.gain = tr.target
		}
	}
	return tr.gain
}

// Dispose releases every stem path. It is safe to call repeatedly.
func (g *Graph) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	g.stopLocked()
	g.disposed = true
	g.tracks = map[string]*track{}
	g.order = nil
	g.scratchL, g.scratchR = nil, nil
	g.analyser.Reset()
}

// Disposed reports whether Dispose has run.
func (g *Graph) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}

func (g *Graph) positionFrame() int {
	return int(g.position * float64(g.sampleRate))
}

// Resample converts buf to sampleRate with linear interpolation. Buffers
// already at sampleRate are returned unchanged.
func Resample(buf *Buffer, sampleRate int) *Buffer {
	if buf == nil || sampleRate <= 0 || buf.SampleRate == sampleRate || buf.SampleRate <= 0 {
		return buf
	}
	srcFrames := buf.Frames()
	ratio := float64(buf.SampleRate) / float64(sampleRate)
	dstFrames := int(float64(srcFrames) / ratio)
	out := NewBuffer(sampleRate, buf.NumChannels(), dstFrames)
	for c, src := range buf.Channels {
		dst := out.Channels[c]
		for i := range dst {
			pos := float64(i) * ratio
			idx := int(pos)
			frac := float32(pos - float64(idx))
			a := sampleAt(src, idx)
			b := sampleAt(src, idx+1)
			if idx+1 >= srcFrames {
				b = a
			}
			dst[i] = a + (b-a)*frac
		}
	}
	return out
}
