package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"stemdeck/internal/audio"
	"stemdeck/internal/auth"
	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/media"
	"stemdeck/internal/separation"
	"stemdeck/internal/services"
	"stemdeck/internal/stems"
	"stemdeck/internal/upload"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollFailures = 5
)

// Backend is the part of the separation service the controller drives.
type Backend interface {
	Submit(ctx context.Context, file *media.AudioFile) (separation.SubmitResponse, error)
	Status(ctx context.Context, jobID, statusEndpoint string) (separation.StatusResponse, error)
}

// Loader fetches and decodes one stem asset. *audio.Graph satisfies it.
type Loader interface {
	LoadAudioFile(ctx context.Context, url string) (*audio.Buffer, error)
}

// Options configures a Controller.
type Options struct {
	Backend         Backend
	Loader          Loader
	Tokens          auth.TokenProvider
	Constraints     upload.Constraints
	StemSet         stems.Set
	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollDuration time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

// OptionsFromConfig fills the polling and stem settings from cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	set, err := stems.ParseSet(cfg.Player.StemSet)
	if err != nil {
		return Options{}, err
	}
	return Options{
		StemSet:         set,
		PollInterval:    cfg.PollInterval(),
		MaxPollFailures: cfg.Backend.MaxPollFailures,
		MaxPollDuration: cfg.MaxPollDuration(),
	}, nil
}

// Snapshot is an immutable view of the controller.
type Snapshot struct {
	State        State
	Status       ProcessingStatus
	JobID        string
	FileName     string
	Stems        []*stems.Result
	Err          error
	Message      string
	AuthRequired bool

	seq uint64
}

// Controller runs at most one separation job at a time.
type Controller struct {
	opts   Options
	logger *slog.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu           sync.Mutex
	state        State
	status       ProcessingStatus
	file         *media.AudioFile
	jobID        string
	results      []*stems.Result
	err          error
	authRequired bool
	generation   uint64
	cancelRun    context.CancelFunc
	closed       bool

	observers []observer
	nextObs   int
	published uint64
	pending   []Snapshot
	wake      chan struct{}
	done      chan struct{}
}

type observer struct {
	id int
	fn func(Snapshot)
}

// New builds an idle controller.
func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("job controller requires a backend")
	}
	if opts.Loader == nil {
		return nil, errors.New("job controller requires a stem loader")
	}
	if opts.StemSet == "" {
		opts.StemSet = stems.SetTwo
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollFailures <= 0 {
		opts.MaxPollFailures = defaultMaxPollFailures
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Constraints.MaxBytes == 0 && len(opts.Constraints.Extensions) == 0 {
		opts.Constraints = upload.Fallback()
	}
	base, stop := context.WithCancel(context.Background())
	c := &Controller{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "job"),
		base:   base,
		stop:   stop,
		state:  StateIdle,
		status: IdleStatus(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go c.dispatch()
	return c, nil
}

// Subscribe registers fn for snapshots after every transition. Snapshots are
// delivered in transition order on a dispatch goroutine, to observers in
// subscription order, so fn may block or call back into the controller
// without stalling transitions.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextObs
	c.nextObs++
	c.observers = append(c.observers, observer{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, obs := range c.observers {
			if obs.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        c.state,
		Status:       c.status,
		JobID:        c.jobID,
		Err:          c.err,
		AuthRequired: c.authRequired,
	}
	if c.file != nil {
		snap.FileName = c.file.Name
	}
	if len(c.results) > 0 {
		snap.Stems = append([]*stems.Result(nil), c.results...)
	}
	if c.err != nil {
		snap.Message = services.UserMessage(c.err)
	}
	return snap
}

// Submit validates file, checks the token precondition, and posts the job.
// It returns once the service has acknowledged the job; polling continues in
// the background. Failures move the controller to the error state and are
// also returned.
func (c *Controller) Submit(ctx context.Context, file *media.AudioFile) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()
	return c.start(ctx, gen, file)
}

// Retry resubmits the last file after an error.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateError || c.file == nil {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	c.generation++
	gen := c.generation
	file := c.file
	c.mu.Unlock()
	c.logger.Info("retrying separation", logging.String("file", file.Name))
	return c.start(ctx, gen, file)
}

func (c *Controller) start(ctx context.Context, gen uint64, file *media.AudioFile) error {
	if err := upload.Validate(file, c.opts.Constraints); err != nil {
		c.reset(gen, file)
		c.fail(gen, err)
		return err
	}
	if c.opts.Tokens != nil {
		if _, err := c.opts.Tokens.Token(ctx); err != nil {
			c.reset(gen, file)
			if !errors.Is(err, services.ErrAuthRequired) {
				err = fmt.Errorf("%w: %w", services.ErrAuthRequired, err)
			}
			c.fail(gen, err)
			return err
		}
	}

	runCtx, cancel := context.WithCancel(c.base)
	ok := c.update(gen, func() {
		c.resetLocked(file)
		c.state = StateSubmitting
		c.status = ProcessingStatus{Stage: StageLoadingModel, Message: "Uploading " + file.Name}
		c.cancelRun = cancel
	})
	if !ok {
		cancel()
		return ErrCancelled
	}

	stopAfter := context.AfterFunc(ctx, cancel)
	resp, err := c.opts.Backend.Submit(runCtx, file)
	stopAfter()
	if err != nil {
		if runCtx.Err() != nil && !c.current(gen) {
			return ErrCancelled
		}
		c.fail(gen, err)
		return err
	}

	logger := c.logger.With(logging.JobID(resp.JobID))
	runCtx = services.WithJobID(runCtx, resp.JobID)
	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		return ErrCancelled
	}
	c.state = StatePolling
	c.jobID = resp.JobID
	c.status = c.status.advance(ProcessingStatus{Stage: StageLoadingModel, Message: "Queued"})
	c.wg.Add(1)
	c.publishLocked()
	logger.Info("separation job accepted", logging.String("status_endpoint", resp.StatusEndpoint))
	go func() {
		defer c.wg.Done()
		c.poll(runCtx, gen, resp.JobID, resp.StatusEndpoint, logger)
	}()
	return nil
}

// Wait blocks until the current lifecycle ends, the controller is closed, or
// ctx is done.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	var after atomic.Uint64
	after.Store(math.MaxUint64)
	done := make(chan Snapshot, 1)
	unsubscribe := c.Subscribe(func(s Snapshot) {
		// queued snapshots from before the check below describe older lifecycles
		if s.State.Busy() || s.seq <= after.Load() {
			return
		}
		select {
		case done <- s:
		default:
		}
	})
	defer unsubscribe()
	c.mu.Lock()
	snap, closed := c.snapshotLocked(), c.closed
	after.Store(c.published)
	c.mu.Unlock()
	if closed {
		return snap, ErrClosed
	}
	if !snap.State.Busy() {
		return snap, nil
	}
	select {
	case snap := <-done:
		return snap, nil
	case <-c.done:
		return c.Snapshot(), ErrClosed
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Cancel abandons the in-flight job and returns to idle. Late responses from
// the abandoned job are ignored.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	cancel := c.cancelRun
	c.cancelRun = nil
	wasBusy := c.state.Busy()
	if wasBusy {
		c.state = StateIdle
		c.status = IdleStatus()
		c.jobID = ""
		c.publishLocked()
	} else {
		c.mu.Unlock()
	}
	if cancel != nil {
		cancel()
	}
	if wasBusy {
		c.logger.Info("separation cancelled")
	}
}

// Close cancels outstanding work, returns a busy controller to idle, and
// waits for background goroutines. No snapshot delivery starts after Close
// returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	c.cancelRun = nil
	if c.state.Busy() {
		c.state = StateIdle
		c.status = IdleStatus()
		c.jobID = ""
	}
	c.observers = nil
	c.pending = nil
	close(c.done)
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation && !c.closed
}

// update applies fn if gen is still current, then publishes. It reports
// whether fn ran.
func (c *Controller) update(gen uint64, fn func()) bool {
	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		return false
	}
	fn()
	c.publishLocked()
	return true
}

// publishLocked queues a snapshot for the dispatcher and releases c.mu.
// Queue order is transition order because every transition holds c.mu.
func (c *Controller) publishLocked() {
	c.published++
	snap := c.snapshotLocked()
	snap.seq = c.published
	c.pending = append(c.pending, snap)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// dispatch delivers queued snapshots until Close.
func (c *Controller) dispatch() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		for {
			c.mu.Lock()
			if c.closed || len(c.pending) == 0 {
				c.mu.Unlock()
				break
			}
			snap := c.pending[0]
			c.pending = c.pending[1:]
			observers := append([]observer(nil), c.observers...)
			c.mu.Unlock()
			for _, obs := range observers {
				if !c.deliverable() {
					break
				}
				obs.fn(snap)
			}
		}
	}
}

func (c *Controller) deliverable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Controller) reset(gen uint64, file *media.AudioFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation && !c.closed {
		c.resetLocked(file)
	}
}

func (c *Controller) resetLocked(file *media.AudioFile) {
	c.file = file
	c.jobID = ""
	c.results = nil
	c.err = nil
	c.authRequired = false
	c.status = IdleStatus()
}

func (c *Controller) fail(gen uint64, err error) {
	var cancel context.CancelFunc
	ok := c.update(gen, func() {
		c.state = StateError
		c.err = err
		c.authRequired = errors.Is(err, services.ErrAuthRequired)
		next := c.status
		next.Stage = StageError
		next.ETA = 0
		next.Error = services.UserMessage(err)
		next.Message = next.Error
		c.status = next
		cancel = c.cancelRun
		c.cancelRun = nil
	})
	if !ok {
		return
	}
	if cancel != nil {
		cancel()
	}
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String(logging.FieldImpact, "separation stopped"),
	}
	switch {
	case errors.Is(err, services.ErrInput), errors.Is(err, services.ErrAuthRequired), errors.Is(err, services.ErrRateLimited):
		logging.WarnWithContext(c.logger, "separation rejected", "job_rejected", attrs...)
	default:
		logging.ErrorWithContext(c.logger, "separation failed", "job_failed", attrs...)
	}
}
