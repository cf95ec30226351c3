package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stemdeck/internal/logging"
)

// Renderer produces interleaved stereo frames. Graph implements it.
type Renderer interface {
	Render(dst []float32) int
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(dst []float32) int

// Render calls f.
func (f RendererFunc) Render(dst []float32) int { return f(dst) }

// Pump moves fixed blocks from a Renderer into a Sink at real-time pace.
type Pump struct {
	renderer    Renderer
	sink        Sink
	blockFrames int
	interval    time.Duration
	logger      *slog.Logger
}

// NewPump builds a pump rendering block-sized chunks at sampleRate.
func NewPump(renderer Renderer, sink Sink, sampleRate int, block time.Duration, logger *slog.Logger) *Pump {
	if block <= 0 {
		block = 50 * time.Millisecond
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	frames := int(block.Seconds() * float64(sampleRate))
	if frames < 1 {
		frames = 1
	}
	return &Pump{renderer: renderer, sink: sink, blockFrames: frames, interval: block, logger: logger}
}

// Run renders until ctx is cancelled or the sink fails. Blocks without
// signal are not forwarded, so a paused graph leaves the sink idle.
func (p *Pump) Run(ctx context.Context) error {
	if p.renderer == nil || p.sink == nil {
		return errors.New("pump requires renderer and sink")
	}
	block := make([]float32, p.blockFrames*2)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		n := p.renderer.Render(block)
		if n == 0 {
			continue
		}
		if err := p.sink.Write(block[:n*2]); err != nil {
			p.logger.Warn("audio sink write failed", logging.Error(err))
			return fmt.Errorf("write audio block: %w", err)
		}
	}
}

// Mixdown renders g from offset at rate into sink as fast as possible until
// every stem is exhausted, then closes the sink. It returns the frame count.
func Mixdown(g *Graph, sink Sink, offset, rate float64, blockFrames int) (int, error) {
	if blockFrames <= 0 {
		blockFrames = 4096
	}
	if err := g.Start(offset, rate); err != nil {
		return 0, err
	}
	defer g.Stop()
	block := make([]float32, blockFrames*2)
	total := 0
	for {
		n := g.Render(block)
		if n == 0 {
			break
		}
		if err := sink.Write(block[:n*2]); err != nil {
			_ = sink.Close()
			return total, fmt.Errorf("write mixdown: %w", err)
		}
		total += n
	}
	if err := sink.Close(); err != nil {
		return total, err
	}
	return total, nil
}
