package audio

import (
	"sync"
	"time"
)

const (
	MinRate = 0.5
	MaxRate = 2.0
)

// Source is the playable signal the transport starts and stops. The graph
// implements it; tests substitute a recorder.
type Source interface {
	Start(offset, rate float64) error
	Stop()
}

// Transport tracks the playhead against a reference clock and drives the
// source. Position is offset + elapsed*rate while playing, offset while paused.
type Transport struct {
	mu     sync.Mutex
	clock  Clock
	source Source

	loaded   bool
	disposed bool
	duration float64

	playing    bool
	offset     float64
	startedAt  time.Duration
	rate       float64
	activeRate float64
}

// NewTransport builds a transport for source measured against clock.
func NewTransport(clock Clock, source Source) *Transport {
	if clock == nil {
		clock = NewClock()
	}
	return &Transport{clock: clock, source: source, rate: 1, activeRate: 1}
}

// Load marks the source ready with the given duration and rewinds to zero.
func (t *Transport) Load(duration float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return ErrDisposed
	}
	if t.playing && t.source != nil {
		t.source.Stop()
	}
	t.loaded = true
	t.playing = false
	t.offset = 0
	if duration < 0 {
		duration = 0
	}
	t.duration = duration
	return nil
}

// Dispose stops playback and makes every later call fail with ErrDisposed.
func (t *Transport) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	if t.playing && t.source != nil {
		t.source.Stop()
	}
	t.disposed = true
	t.playing = false
	t.loaded = false
}

// Duration returns the loaded duration in seconds.
func (t *Transport) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// CurrentTime returns the playhead in seconds, always within [0, Duration].
// Reaching the end stops playback and parks the playhead at Duration.
func (t *Transport) CurrentTime() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

// IsPlaying reports whether the source is running.
func (t *Transport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positionLocked()
	return t.playing
}

// Rate returns the requested playback rate.
func (t *Transport) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// Play resumes from the stored offset. It is a no-op while playing.
func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.readyLocked(); err != nil {
		return err
	}
	t.positionLocked()
	if t.playing {
		return nil
	}
	if t.offset >= t.duration {
		t.offset = 0
	}
	return t.startLocked()
}

// Pause captures the elapsed position as the new offset.
func (t *Transport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.readyLocked(); err != nil {
		return err
	}
	if !t.playing {
		return nil
	}
	t.offset = t.positionLocked()
	if t.playing {
		t.playing = false
		if t.source != nil {
			t.source.Stop()
		}
	}
	return nil
}

// Seek moves the playhead. While playing the source is restarted at the new
// offset; while paused only the offset changes.
func (t *Transport) Seek(position float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.readyLocked(); err != nil {
		return err
	}
	position = clampFloat(position, 0, t.duration)
	t.positionLocked()
	if !t.playing {
		t.offset = position
		return nil
	}
	if t.source != nil {
		t.source.Stop()
	}
	t.playing = false
	t.offset = position
	if position >= t.duration {
		return nil
	}
	return t.startLocked()
}

// SetRate clamps rate to [MinRate, MaxRate]. The new rate applies on the next
// Play or Seek.
func (t *Transport) SetRate(rate float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.readyLocked(); err != nil {
		return err
	}
	t.rate = ClampRate(rate)
	return nil
}

// ClampRate bounds a playback rate to the supported range.
func ClampRate(rate float64) float64 {
	return clampFloat(rate, MinRate, MaxRate)
}

func (t *Transport) readyLocked() error {
	if t.disposed {
		return ErrDisposed
	}
	if !t.loaded {
		return ErrNotReady
	}
	return nil
}

func (t *Transport) startLocked() error {
	if t.source != nil {
		if err := t.source.Start(t.offset, t.rate); err != nil {
			return err
		}
	}
	t.playing = true
	t.startedAt = t.clock.Now()
	t.activeRate = t.rate
	return nil
}

func (t *Transport) positionLocked() float64 {
	if !t.playing {
		return clampFloat(t.offset, 0, t.duration)
	}
	elapsed := (t.clock.Now() - t.startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	pos := t.offset + elapsed*t.activeRate
	if pos >= t.duration {
		t.playing = false
		t.offset = t.duration
		if t.source != nil {
			t.source.Stop()
		}
		return t.duration
	}
	return clampFloat(pos, 0, t.duration)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
