package session_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stemdeck/internal/audio"
	"stemdeck/internal/objecturl"
	"stemdeck/internal/routing"
	"stemdeck/internal/session"
	"stemdeck/internal/stems"
	"stemdeck/internal/testsupport"
)

func acquire(t *testing.T, lockPath string) (*session.Session, *audio.ManualClock, *objecturl.Registry) {
	t.Helper()
	clock := &audio.ManualClock{}
	registry := objecturl.NewRegistry()
	s, err := session.Acquire(session.Options{
		LockPath:   lockPath,
		SampleRate: 8000,
		Clock:      clock,
		Registry:   registry,
		Devices:    []routing.Device{{ID: "main", Name: "Main"}, {ID: "monitor", Name: "Monitor"}},
	})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock, registry
}

func twoResults() []*stems.Result {
	return []*stems.Result{
		stems.NewResult(stems.Vocals, testsupport.ToneBuffer(8000, 1, 220, false), "out/vocals.wav"),
		stems.NewResult(stems.NoVocals, testsupport.ToneBuffer(8000, 2, 110, false), "out/music.wav"),
	}
}

func TestAcquireIsExclusive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "state", "player.lock")
	first, _, _ := acquire(t, lockPath)

	if _, err := session.Acquire(session.Options{LockPath: lockPath}); !errors.Is(err, session.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := session.Acquire(session.Options{LockPath: lockPath})
	if err != nil {
		t.Fatalf("reacquire after close: %v", err)
	}
	_ = second.Close()
}

func TestOpenFileReleasesPreviousURL(t *testing.T) {
	s, _, registry := acquire(t, filepath.Join(t.TempDir(), "player.lock"))
	dir := t.TempDir()
	first := filepath.Join(dir, "a.wav")
	second := filepath.Join(dir, "b.wav")
	testsupport.WriteToneWAV(t, first, 8000, 0.1, 220)
	testsupport.WriteToneWAV(t, second, 8000, 0.1, 220)

	a, err := s.OpenFile(first)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	urlA := a.URL()
	if _, err := s.OpenFile(second); err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if registry.Live() != 1 {
		t.Fatalf("expected one live url, got %d", registry.Live())
	}
	if _, err := registry.Resolve(urlA); err == nil {
		t.Fatal("superseded url should be revoked")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if registry.Live() != 0 {
		t.Fatalf("urls leaked after close: %d", registry.Live())
	}
}

func TestLoadStemsReplacesGraph(t *testing.T) {
	s, clock, _ := acquire(t, filepath.Join(t.TempDir(), "player.lock"))
	if err := s.TogglePlay(); !errors.Is(err, session.ErrNoStems) {
		t.Fatalf("expected ErrNoStems, got %v", err)
	}
	if err := s.LoadStems(twoResults()); err != nil {
		t.Fatalf("LoadStems: %v", err)
	}
	first := s.Graph()
	if got := s.Transport().Duration(); got != 2 {
		t.Fatalf("duration = %v, want longest stem", got)
	}
	if router := s.Router(); router == nil || len(router.Snapshot()) != 2 {
		t.Fatal("router should be seeded for both stems")
	}

	if err := s.TogglePlay(); err != nil {
		t.Fatalf("play: %v", err)
	}
	clock.Advance(500 * time.Millisecond)
	if got := s.Transport().CurrentTime(); got < 0.49 || got > 0.51 {
		t.Fatalf("current time = %v", got)
	}

	if err := s.LoadStems(twoResults()[:1]); err != nil {
		t.Fatalf("LoadStems: %v", err)
	}
	if !first.Disposed() {
		t.Fatal("previous graph must be disposed")
	}
	if s.Transport().IsPlaying() || s.Transport().CurrentTime() != 0 {
		t.Fatal("replacement transport should start paused at zero")
	}
	if got := s.Graph().Stems(); len(got) != 1 {
		t.Fatalf("expected one stem in new graph, got %v", got)
	}
}

func TestVolumeAndMute(t *testing.T) {
	s, _, _ := acquire(t, filepath.Join(t.TempDir(), "player.lock"))
	if err := s.LoadStems(twoResults()); err != nil {
		t.Fatalf("LoadStems: %v", err)
	}
	if err := s.SetVolume(stems.Vocals, 0.4); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if err := s.ToggleMute(stems.Vocals); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if v, _ := s.Graph().Volume(string(stems.Vocals)); v != 0 {
		t.Fatalf("muted graph volume = %v", v)
	}
	if err := s.ToggleMute(stems.Vocals); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if v, _ := s.Graph().Volume(string(stems.Vocals)); v < 0.399 || v > 0.401 {
		t.Fatalf("unmute should restore 0.4, got %v", v)
	}
	if err := s.SetVolume(stems.Drums, 1); !errors.Is(err, audio.ErrUnknownStem) {
		t.Fatalf("expected unknown stem, got %v", err)
	}
}

func TestStartOutputStopsOnClose(t *testing.T) {
	s, _, _ := acquire(t, filepath.Join(t.TempDir(), "player.lock"))
	sink := &audio.NullSink{}
	if err := s.StartOutput(t.Context(), sink); err != nil {
		t.Fatalf("StartOutput: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Write(nil); err == nil {
		t.Fatal("sink should be closed with the session")
	}
	if err := s.LoadStems(twoResults()); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
