package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stemdeck/internal/audio"
	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/media"
	"stemdeck/internal/objecturl"
	"stemdeck/internal/routing"
	"stemdeck/internal/stems"
)

var (
	// ErrLocked means another process holds the player lock.
	ErrLocked = errors.New("another stemdeck player is already running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
	// ErrNoStems is returned by playback controls before stems are loaded.
	ErrNoStems = errors.New("no stems loaded")
)

// Options configures a Session.
type Options struct {
	LockPath     string
	SampleRate   int
	Ramp         time.Duration
	Block        time.Duration
	AnalyserSize int
	Fetcher      audio.AssetFetcher
	Registry     *objecturl.Registry
	Clock        audio.Clock
	Devices      []routing.Device
	Logger       *slog.Logger
}

// OptionsFromConfig maps player settings and devices from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	devices := make([]routing.Device, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		devices = append(devices, routing.Device{ID: routing.DeviceID(d.ID), Name: d.Name})
	}
	return Options{
		LockPath:   cfg.LockPath(),
		SampleRate: cfg.Player.SampleRate,
		Ramp:       cfg.RampDuration(),
		Block:      cfg.BlockDuration(),
		Devices:    devices,
	}
}

// Session is the process-wide player handle. Pass it explicitly; there is no
// package-level instance.
type Session struct {
	id       string
	opts     Options
	logger   *slog.Logger
	lock     *flock.Flock
	registry *objecturl.Registry

	mu         sync.Mutex
	file       *media.AudioFile
	results    []*stems.Result
	graph      *audio.Graph
	transport  *audio.Transport
	router     *routing.Router
	stopOutput context.CancelFunc
	outputDone chan struct{}
	closed     bool
}

// Acquire takes the player lock and returns an empty session.
func Acquire(opts Options) (*Session, error) {
	if opts.LockPath == "" {
		return nil, errors.New("session lock path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(opts.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire player lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, opts.LockPath)
	}

	if opts.Registry == nil {
		opts.Registry = objecturl.NewRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = audio.NewClock()
	}
	id := uuid.NewString()
	s := &Session{
		id:       id,
		opts:     opts,
		logger:   logging.WithSession(logging.NewComponentLogger(opts.Logger, "session"), id),
		lock:     lock,
		registry: opts.Registry,
	}
	s.graph = s.newGraph()
	s.transport = audio.NewTransport(opts.Clock, s.graph)
	s.logger.Debug("player session started", logging.String("lock", opts.LockPath))
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Registry returns the object URL registry backing file and stem URLs.
func (s *Session) Registry() *objecturl.Registry { return s.registry }

func (s *Session) newGraph() *audio.Graph {
	return audio.NewGraph(audio.GraphOptions{
		SampleRate:   s.opts.SampleRate,
		Ramp:         s.opts.Ramp,
		AnalyserSize: s.opts.AnalyserSize,
		Fetcher:      s.fetcher(),
	})
}

// fetcher resolves blob: URLs locally and defers everything else.
func (s *Session) fetcher() audio.AssetFetcher {
	return audio.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		if objecturl.IsObjectURL(url) || s.opts.Fetcher == nil {
			return s.registry.Fetch(ctx, url)
		}
		return s.opts.Fetcher.Fetch(ctx, url)
	})
}

// OpenFile selects path as the source track. The previous file's URL is
// released and any loaded stems are discarded.
func (s *Session) OpenFile(path string) (*media.AudioFile, error) {
	file, err := media.Open(path, s.registry)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		file.Release()
		return nil, ErrClosed
	}
	previous := s.file
	s.file = file
	s.replaceLocked(nil)
	s.mu.Unlock()

	if previous != nil {
		previous.Release()
	}
	s.logger.Info("file selected",
		logging.String("file", file.Name),
		logging.Int64("size_bytes", file.Size),
	)
	return file, nil
}

// File returns the selected file, if any.
func (s *Session) File() *media.AudioFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// LoadAudioFile fetches and decodes url through the live graph. It lets the
// session act as the job controller's stem loader.
func (s *Session) LoadAudioFile(ctx context.Context, url string) (*audio.Buffer, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	graph := s.graph
	s.mu.Unlock()
	return graph.LoadAudioFile(ctx, url)
}

// LoadStems replaces the graph with one built from results and rewinds the
// transport.
func (s *Session) LoadStems(results []*stems.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.replaceLocked(results); err != nil {
		return err
	}
	s.logger.Info("stems loaded",
		logging.Int("stem_count", len(results)),
		logging.Float64("duration_seconds", s.graph.Duration()),
	)
	return nil
}

// replaceLocked disposes the live graph and transport and builds new ones
// holding results. Output, if running, keeps pumping from the new graph.
func (s *Session) replaceLocked(results []*stems.Result) error {
	if s.transport != nil {
		s.transport.Dispose()
	}
	if s.graph != nil {
		s.graph.Dispose()
	}
	s.graph = s.newGraph()
	s.transport = audio.NewTransport(s.opts.Clock, s.graph)
	s.results = nil
	s.router = nil
	if len(results) == 0 {
		return nil
	}

	names := make([]stems.Name, 0, len(results))
	for _, result := range results {
		if result == nil || result.Buffer == nil {
			return errors.New("stem has no decoded audio")
		}
		if err := s.graph.AddStem(string(result.Name), result.Buffer); err != nil {
			return fmt.Errorf("add stem %s: %w", result.Name, err)
		}
		if err := s.graph.SetVolume(string(result.Name), result.Volume.Level()); err != nil {
			return err
		}
		names = append(names, result.Name)
	}
	if err := s.transport.Load(s.graph.Duration()); err != nil {
		return err
	}
	s.results = results
	s.router = routing.NewRouter(s.opts.Devices, names)
	return nil
}

// Stems returns the loaded stem records.
func (s *Session) Stems() []*stems.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*stems.Result(nil), s.results...)
}

// Graph returns the live graph.
func (s *Session) Graph() *audio.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Transport returns the live transport.
func (s *Session) Transport() *audio.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

// Router returns the device router, nil before stems are loaded.
func (s *Session) Router() *routing.Router {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router
}

func (s *Session) stemLocked(name stems.Name) (*stems.Result, error) {
	for _, result := range s.results {
		if result.Name == name {
			return result, nil
		}
	}
	if len(s.results) == 0 {
		return nil, ErrNoStems
	}
	return nil, fmt.Errorf("%w: %s", audio.ErrUnknownStem, name)
}

// SetVolume sets a stem volume in [0, 1].
func (s *Session) SetVolume(name stems.Name, level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.stemLocked(name)
	if err != nil {
		return err
	}
	result.Volume.Set(level)
	return s.graph.SetVolume(string(name), result.Volume.Level())
}

// ToggleMute mutes or restores a stem.
func (s *Session) ToggleMute(name stems.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.stemLocked(name)
	if err != nil {
		return err
	}
	result.Volume.Toggle()
	return s.graph.SetVolume(string(name), result.Volume.Level())
}

// TogglePlay starts or pauses playback. Starting at the end rewinds to zero.
func (s *Session) TogglePlay() error {
	s.mu.Lock()
	transport := s.transport
	loaded := len(s.results) > 0
	s.mu.Unlock()
	if !loaded {
		return ErrNoStems
	}
	if transport.IsPlaying() {
		return transport.Pause()
	}
	return transport.Play()
}

// StartOutput pumps the live graph into sink until ctx ends, the sink fails,
// or Close is called. A previous output is stopped first.
func (s *Session) StartOutput(ctx context.Context, sink audio.Sink) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stopOutputLocked()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopOutput = cancel
	s.outputDone = done
	s.mu.Unlock()

	pump := audio.NewPump(audio.RendererFunc(s.render), sink, s.sampleRate(), s.opts.Block, s.logger)
	go func() {
		defer close(done)
		defer sink.Close()
		if err := pump.Run(runCtx); err != nil {
			s.logger.Warn("audio output stopped", logging.Error(err))
		}
	}()
	return nil
}

func (s *Session) sampleRate() int {
	if s.opts.SampleRate > 0 {
		return s.opts.SampleRate
	}
	return audio.DefaultSampleRate
}

// render follows graph replacement so the output survives LoadStems.
func (s *Session) render(dst []float32) int {
	s.mu.Lock()
	graph := s.graph
	s.mu.Unlock()
	return graph.Render(dst)
}

func (s *Session) stopOutputLocked() {
	if s.stopOutput == nil {
		return
	}
	s.stopOutput()
	done := s.outputDone
	s.stopOutput = nil
	s.outputDone = nil
	s.mu.Unlock()
	<-done
	s.mu.Lock()
}

// Close stops output, disposes the graph, releases every URL handle and the
// player lock. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopOutputLocked()
	if s.transport != nil {
		s.transport.Dispose()
	}
	if s.graph != nil {
		s.graph.Dispose()
	}
	file := s.file
	s.file = nil
	s.results = nil
	s.router = nil
	s.mu.Unlock()

	if file != nil {
		file.Release()
	}
	if live := s.registry.Live(); live > 0 {
		s.logger.Warn("object urls still live at session close", logging.Int("live", live))
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("release player lock: %w", err)
	}
	s.logger.Debug("player session closed")
	return nil
}
