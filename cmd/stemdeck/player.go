package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"stemdeck/internal/audio"
	"stemdeck/internal/config"
	"stemdeck/internal/lyrics"
	"stemdeck/internal/media"
	"stemdeck/internal/session"
	"stemdeck/internal/stems"
)

const headlessPoll = 200 * time.Millisecond

// isInteractive reports whether both stdin and stdout are terminals.
func isInteractive(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok {
		return false
	}
	outFile, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(inFile.Fd()) && isatty.IsTerminal(outFile.Fd())
}

// openSink starts the configured external player. An empty command or
// "null" discards audio, which keeps the transport and visuals usable on
// machines without a sound server.
func openSink(ctx context.Context, cfg *config.Config, override string) (audio.Sink, string, error) {
	command := cfg.Output.Command
	args := cfg.Output.Args
	if value := strings.TrimSpace(override); value != "" {
		command, args = value, nil
	}
	if command == "" || command == "null" {
		return &audio.NullSink{}, "null", nil
	}
	sink, err := audio.NewCommandSink(ctx, command, args, cfg.Player.SampleRate)
	if err != nil {
		return nil, "", fmt.Errorf("start audio output %q: %w (set output.command or pass --output null)", command, err)
	}
	return sink, command, nil
}

// loadLocalStems decodes stem files through the session so they follow the
// same blob URL path as downloaded stems. Handles are released once decoded.
func loadLocalStems(ctx context.Context, sess *session.Session, sources []stemSource) ([]*stems.Result, error) {
	results := make([]*stems.Result, 0, len(sources))
	for _, src := range sources {
		file, err := media.Open(src.Path, sess.Registry())
		if err != nil {
			return nil, err
		}
		buf, err := sess.LoadAudioFile(ctx, file.URL())
		file.Release()
		if err != nil {
			return nil, fmt.Errorf("load stem %s: %w", src.Name, err)
		}
		results = append(results, stems.NewResult(src.Name, buf, src.Path))
	}
	return results, nil
}

// playHeadless plays to the end, printing each lyric line as it becomes
// active.
func playHeadless(ctx context.Context, sess *session.Session, lines []lyrics.Line, out io.Writer) error {
	transport := sess.Transport()
	if err := transport.Play(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Playing %.1fs at %.1fx (Ctrl+C to stop)\n", transport.Duration(), transport.Rate())
	ticker := time.NewTicker(headlessPoll)
	defer ticker.Stop()
	last := -1
	for {
		select {
		case <-ctx.Done():
			_ = transport.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
		if index := lyrics.ActiveLine(transport.CurrentTime(), lines); index != last {
			last = index
			if index >= 0 {
				fmt.Fprintf(out, "[%s] %s\n", formatSeconds(lines[index].Start), lines[index].Text)
			}
		}
		if !transport.IsPlaying() {
			fmt.Fprintln(out, "Playback finished")
			return nil
		}
	}
}

func formatSeconds(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
