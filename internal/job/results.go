package job

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"stemdeck/internal/logging"
	"stemdeck/internal/services"
	"stemdeck/internal/stems"
)

// loadResults fetches and decodes every accepted stem concurrently. One
// failed stem fails the job.
func (c *Controller) loadResults(ctx context.Context, gen uint64, raw map[string]string, logger *slog.Logger) {
	entries, rejected := c.opts.StemSet.Filter(raw)
	if len(rejected) > 0 {
		logging.WarnWithContext(logger, "ignoring unknown stems", "unknown_stems",
			logging.String("stems", strings.Join(rejected, ",")),
			logging.String("stem_set", string(c.opts.StemSet)),
		)
	}
	if len(entries) == 0 {
		c.fail(gen, services.Wrap(services.ErrJob, "job", "load results", "the service returned no usable stems", nil))
		return
	}

	if !c.update(gen, func() {
		c.state = StateLoadingResults
		c.status = c.status.advance(ProcessingStatus{Stage: StageExporting, Progress: 100, Message: "Loading stems"})
	}) {
		return
	}

	results := make([]*stems.Result, len(entries))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		group.Go(func() error {
			buf, err := c.opts.Loader.LoadAudioFile(groupCtx, entry.Path)
			if err != nil {
				return &StemError{Stem: entry.Name, Err: err}
			}
			results[i] = stems.NewResult(entry.Name, buf, entry.Path)
			logger.Debug("stem loaded",
				logging.Stem(string(entry.Name)),
				logging.Float64("duration_seconds", buf.Duration()),
			)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.fail(gen, err)
		return
	}

	var cancel func()
	if !c.update(gen, func() {
		c.state = StateComplete
		c.results = results
		c.status = ProcessingStatus{Stage: StageComplete, Progress: 100, Message: "Separation complete"}
		cancel = c.cancelRun
		c.cancelRun = nil
	}) {
		return
	}
	if cancel != nil {
		cancel()
	}
	logger.Info("separation complete", logging.Int("stem_count", len(results)))
}
