package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

type startCall struct {
	offset float64
	rate   float64
}

type recorderSource struct {
	starts []startCall
	stops  int
	err    error
}

func (r *recorderSource) Start(offset, rate float64) error {
	if r.err != nil {
		return r.err
	}
	r.starts = append(r.starts, startCall{offset: offset, rate: rate})
	return nil
}

func (r *recorderSource) Stop() { r.stops++ }

func newLoadedTransport(t *testing.T, duration float64) (*Transport, *ManualClock, *recorderSource) {
	t.Helper()
	clock := &ManualClock{}
	src := &recorderSource{}
	tr := NewTransport(clock, src)
	if err := tr.Load(duration); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return tr, clock, src
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestTransportNotReadyBeforeLoad(t *testing.T) {
	tr := NewTransport(&ManualClock{}, &recorderSource{})
	for name, fn := range map[string]func() error{
		"play":  tr.Play,
		"pause": tr.Pause,
		"seek":  func() error { return tr.Seek(1) },
		"rate":  func() error { return tr.SetRate(1.5) },
	} {
		if err := fn(); !errors.Is(err, ErrNotReady) {
			t.Fatalf("%s: expected ErrNotReady, got %v", name, err)
		}
	}
}

func TestTransportDisposedRejectsCalls(t *testing.T) {
	tr, _, src := newLoadedTransport(t, 10)
	if err := tr.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	tr.Dispose()
	tr.Dispose()
	if src.stops != 1 {
		t.Fatalf("expected one stop on dispose, got %d", src.stops)
	}
	if err := tr.Play(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
	if err := tr.Load(5); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed from Load, got %v", err)
	}
}

func TestTransportPauseResumesFromOffset(t *testing.T) {
	tr, clock, src := newLoadedTransport(t, 60)
	if err := tr.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	clock.Advance(3 * time.Second)
	if err := tr.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := tr.CurrentTime(); !approx(got, 3) {
		t.Fatalf("expected 3s after pause, got %v", got)
	}
	clock.Advance(10 * time.Second)
	if got := tr.CurrentTime(); !approx(got, 3) {
		t.Fatalf("paused time drifted to %v", got)
	}
	if err := tr.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(src.starts) != 2 || !approx(src.starts[1].offset, 3) {
		t.Fatalf("expected restart at 3s, got %+v", src.starts)
	}
}

func TestTransportPlayIsNoopWhilePlaying(t *testing.T) {
	tr, clock, src := newLoadedTransport(t, 60)
	_ = tr.Play()
	clock.Advance(time.Second)
	_ = tr.Play()
	if len(src.starts) != 1 {
		t.Fatalf("expected a single start, got %d", len(src.starts))
	}
	if got := tr.CurrentTime(); !approx(got, 1) {
		t.Fatalf("expected 1s, got %v", got)
	}
}

func TestTransportSeekWhilePausedThenPlay(t *testing.T) {
	tr, _, src := newLoadedTransport(t, 60)
	if err := tr.Seek(42); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := tr.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := tr.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(src.starts) != 1 || !approx(src.starts[0].offset, 42) {
		t.Fatalf("expected playback to resume at 42, got %+v", src.starts)
	}
}

func TestTransportSeekWhilePlayingRestarts(t *testing.T) {
	tr, clock, src := newLoadedTransport(t, 60)
	_ = tr.Play()
	clock.Advance(5 * time.Second)
	if err := tr.Seek(20); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if src.stops != 1 || len(src.starts) != 2 {
		t.Fatalf("expected stop+restart, got stops=%d starts=%d", src.stops, len(src.starts))
	}
	clock.Advance(2 * time.Second)
	if got := tr.CurrentTime(); !approx(got, 22) {
		t.Fatalf("expected 22s, got %v", got)
	}
}

func TestTransportRateAppliesOnNextPlay(t *testing.T) {
	tr, clock, src := newLoadedTransport(t, 60)
	_ = tr.Play()
	if err := tr.SetRate(2); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	clock.Advance(2 * time.Second)
	if got := tr.CurrentTime(); !approx(got, 2) {
		t.Fatalf("rate should not apply until restart, got %v", got)
	}
	_ = tr.Seek(10)
	clock.Advance(2 * time.Second)
	if got := tr.CurrentTime(); !approx(got, 14) {
		t.Fatalf("expected 14s at 2x, got %v", got)
	}
	if last := src.starts[len(src.starts)-1]; last.rate != 2 {
		t.Fatalf("expected source rate 2, got %v", last.rate)
	}
}

func TestTransportSetRateClamps(t *testing.T) {
	tr, _, _ := newLoadedTransport(t, 60)
	cases := []struct {
		in   float64
		want float64
	}{
		{0.1, MinRate},
		{3, MaxRate},
		{1.25, 1.25},
	}
	for _, tc := range cases {
		if err := tr.SetRate(tc.in); err != nil {
			t.Fatalf("SetRate(%v): %v", tc.in, err)
		}
		if got := tr.Rate(); got != tc.want {
			t.Fatalf("SetRate(%v): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestTransportStopsAtEnd(t *testing.T) {
	tr, clock, src := newLoadedTransport(t, 5)
	_ = tr.Play()
	clock.Advance(9 * time.Second)
	if got := tr.CurrentTime(); got != 5 {
		t.Fatalf("expected clamp to duration, got %v", got)
	}
	if tr.IsPlaying() {
		t.Fatal("expected playback to stop at end")
	}
	if src.stops != 1 {
		t.Fatalf("expected source stop at end, got %d", src.stops)
	}
	_ = tr.Play()
	if last := src.starts[len(src.starts)-1]; last.offset != 0 {
		t.Fatalf("play at end should restart from zero, got %v", last.offset)
	}
}

func TestTransportTimeStaysInRange(t *testing.T) {
	tr, clock, _ := newLoadedTransport(t, 8)
	steps := []func(){
		func() { _ = tr.Play() },
		func() { clock.Advance(1500 * time.Millisecond) },
		func() { _ = tr.Seek(-4) },
		func() { _ = tr.SetRate(2) },
		func() { _ = tr.Seek(7) },
		func() { clock.Advance(3 * time.Second) },
		func() { _ = tr.Pause() },
		func() { _ = tr.Seek(100) },
		func() { _ = tr.Play() },
		func() { clock.Advance(20 * time.Second) },
	}
	for i, step := range steps {
		step()
		got := tr.CurrentTime()
		if got < 0 || got > tr.Duration() {
			t.Fatalf("step %d: time %v outside [0, %v]", i, got, tr.Duration())
		}
	}
}

func TestTransportStartErrorLeavesPaused(t *testing.T) {
	tr, _, src := newLoadedTransport(t, 10)
	src.err = errors.New("device busy")
	if err := tr.Play(); err == nil {
		t.Fatal("expected start error")
	}
	if tr.IsPlaying() {
		t.Fatal("transport should not report playing after start failure")
	}
}
