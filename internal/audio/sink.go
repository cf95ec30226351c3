package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

var commandContext = exec.CommandContext

// Sink consumes interleaved stereo float32 frames.
type Sink interface {
	Write(frames []float32) error
	Close() error
}

// NullSink discards audio and counts the frames it saw.
type NullSink struct {
	mu     sync.Mutex
	frames int
	closed bool
}

func (s *NullSink) Write(frames []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink closed")
	}
	s.frames += len(frames) / 2
	return nil
}

func (s *NullSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Frames returns the number of stereo frames written.
func (s *NullSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// CommandSink streams raw little-endian float32 stereo PCM into the stdin of
// an external player such as pacat or ffplay.
type CommandSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
	mu     sync.Mutex
	closed bool
}

// ExpandOutputArgs substitutes {rate} and {channels} placeholders.
func ExpandOutputArgs(args []string, sampleRate int) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		arg = strings.ReplaceAll(arg, "{rate}", strconv.Itoa(sampleRate))
		arg = strings.ReplaceAll(arg, "{channels}", "2")
		out[i] = arg
	}
	return out
}

// NewCommandSink launches binary with args and returns a sink writing to its
// stdin. The process is killed when ctx is cancelled.
func NewCommandSink(ctx context.Context, binary string, args []string, sampleRate int) (*CommandSink, error) {
	if strings.TrimSpace(binary) == "" {
		return nil, errors.New("output command required")
	}
	cmd := commandContext(ctx, binary, ExpandOutputArgs(args, sampleRate)...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	return &CommandSink{cmd: cmd, stdin: stdin, writer: bufio.NewWriterSize(stdin, 1<<15)}, nil
}

func (s *CommandSink) Write(frames []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink closed")
	}
	if err := binary.Write(s.writer, binary.LittleEndian, frames); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	return s.writer.Flush()
}

func (s *CommandSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	flushErr := s.writer.Flush()
	closeErr := s.stdin.Close()
	s.mu.Unlock()

	waitErr := s.cmd.Wait()
	return errors.Join(flushErr, closeErr, waitErr)
}

// WAVSink accumulates frames and writes them as a 16-bit WAV file on Close.
type WAVSink struct {
	path       string
	sampleRate int
	left       []float32
	right      []float32
	mu         sync.Mutex
	closed     bool
}

// NewWAVSink prepares a sink that writes path at sampleRate.
func NewWAVSink(path string, sampleRate int) *WAVSink {
	return &WAVSink{path: path, sampleRate: sampleRate}
}

func (s *WAVSink) Write(frames []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink closed")
	}
	for i := 0; i+1 < len(frames); i += 2 {
		s.left = append(s.left, frames[i])
		s.right = append(s.right, frames[i+1])
	}
	return nil
}

// Buffer returns the audio collected so far.
func (s *WAVSink) Buffer() *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Buffer{SampleRate: s.sampleRate, Channels: [][]float32{s.left, s.right}}
}

func (s *WAVSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	if len(s.left) == 0 {
		return errors.New("mixdown produced no audio")
	}
	return WriteWAVFile(s.path, s.Buffer())
}
