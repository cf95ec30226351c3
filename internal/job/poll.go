package job

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"stemdeck/internal/logging"
	"stemdeck/internal/separation"
	"stemdeck/internal/services"
)

// poll drives one job until it completes, fails, escalates, or ctx ends.
// Transient tick failures are absorbed until MaxPollFailures in a row.
func (c *Controller) poll(ctx context.Context, gen uint64, jobID, endpoint string, logger *slog.Logger) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	started := c.opts.Now()
	sampler := logging.NewProgressSampler(10)
	failures := 0
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		resp, err := c.opts.Backend.Status(ctx, jobID, endpoint)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrAuthRequired) {
				c.fail(gen, err)
				return
			}
			failures++
			lastErr = err
			logging.WarnWithContext(logger, "status poll failed", "poll_failed",
				logging.Int("consecutive_failures", failures),
				logging.Int("max_failures", c.opts.MaxPollFailures),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "retrying on the next tick"),
			)
			if failures >= c.opts.MaxPollFailures {
				c.fail(gen, &StalledError{JobID: jobID, Failures: failures, Err: lastErr})
				return
			}
		} else {
			failures = 0
			switch resp.Status {
			case separation.StatusCompleted:
				c.loadResults(ctx, gen, resp.Stems, logger)
				return
			case separation.StatusFailed, separation.StatusError:
				reason := resp.Error
				if reason == "" {
					reason = resp.Message
				}
				c.fail(gen, &FailedError{JobID: jobID, Reason: reason})
				return
			default:
				update := statusFromResponse(resp)
				var snap ProcessingStatus
				if !c.update(gen, func() {
					c.status = c.status.advance(update)
					snap = c.status
				}) {
					return
				}
				if sampler.ShouldLog(string(snap.Stage), snap.Progress) {
					logger.Info("separation progress",
						logging.String(logging.FieldStage, string(snap.Stage)),
						logging.Int(logging.FieldProgressPercent, snap.Progress),
						logging.String(logging.FieldProgressMessage, snap.Message),
					)
				}
			}
		}

		if limit := c.opts.MaxPollDuration; limit > 0 {
			if elapsed := c.opts.Now().Sub(started); elapsed >= limit {
				c.fail(gen, &StalledError{JobID: jobID, Elapsed: elapsed, Err: lastErr})
				return
			}
		}
	}
}

// statusFromResponse maps a poll body onto a ProcessingStatus. An explicit
// stage hint wins; otherwise starting means the model is loading and
// processing stays processing.
func statusFromResponse(resp separation.StatusResponse) ProcessingStatus {
	stage := StageProcessing
	if resp.Status == separation.StatusStarting {
		stage = StageLoadingModel
	}
	switch hint := Stage(resp.Stage); hint {
	case StageLoadingModel, StageProcessing, StageExporting:
		stage = hint
	}
	status := ProcessingStatus{Stage: stage, Message: resp.Message}
	if resp.Progress != nil {
		status.Progress = clampProgress(int(math.Round(*resp.Progress)))
	}
	if resp.ETA != nil && *resp.ETA > 0 {
		status.ETA = time.Duration(*resp.ETA * float64(time.Second))
	}
	if status.Message == "" {
		status.Message = defaultMessage(stage)
	}
	return status
}

func defaultMessage(stage Stage) string {
	switch stage {
	case StageLoadingModel:
		return "Loading separation model"
	case StageExporting:
		return "Exporting stems"
	default:
		return "Separating stems"
	}
}
