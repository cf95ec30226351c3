package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stemdeck/internal/audio"
	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/stems"
)

func newMixCommand(ctx *commandContext) *cobra.Command {
	var stemFlags []string
	var volumeFlags []string
	var rate float64
	var start float64
	var outPath string

	cmd := &cobra.Command{
		Use:   "mix",
		Short: "Render stems with per-stem volumes into a WAV file",
		Example: "  stemdeck mix --stem vocals=vocals.wav --stem no_vocals=music.wav \\\n" +
			"    --volume vocals=0 --rate 0.8 --out karaoke.wav",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, _, closer, err := ctx.commandLogger(cmd, false)
			if err != nil {
				return err
			}
			defer closer.Close()

			sources, err := parseStemFlags(stemFlags)
			if err != nil {
				return err
			}
			volumes, err := parseVolumeFlags(volumeFlags)
			if err != nil {
				return err
			}
			for name := range volumes {
				if !containsStem(sources, name) {
					return fmt.Errorf("--volume given for %s but no --stem %s", name, name)
				}
			}
			if strings.TrimSpace(outPath) == "" {
				return errors.New("--out is required")
			}
			target, err := config.ExpandPath(outPath)
			if err != nil {
				return err
			}

			graph := audio.NewGraph(audio.GraphOptions{SampleRate: cfg.Player.SampleRate, Ramp: -1})
			defer graph.Dispose()
			for _, src := range sources {
				buf, err := decodeFile(src.Path)
				if err != nil {
					return err
				}
				if err := graph.AddStem(string(src.Name), buf); err != nil {
					return fmt.Errorf("add stem %s: %w", src.Name, err)
				}
				if level, ok := volumes[src.Name]; ok {
					if err := graph.SetVolume(string(src.Name), level); err != nil {
						return err
					}
				}
			}

			rate = audio.ClampRate(rate)
			frames, err := audio.Mixdown(graph, audio.NewWAVSink(target, graph.SampleRate()), start, rate, 0)
			if err != nil {
				return err
			}
			seconds := float64(frames) / float64(graph.SampleRate())
			logger.Info("mixdown written",
				logging.String("path", target),
				logging.Int("stem_count", len(sources)),
				logging.Float64("rate", rate),
				logging.Float64("duration_seconds", seconds),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.2fs, %d stems, rate %.2fx)\n", target, seconds, len(sources), rate)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&stemFlags, "stem", nil, "Stem source as name=path (repeatable)")
	cmd.Flags().StringArrayVar(&volumeFlags, "volume", nil, "Stem volume as name=level in [0,1] (repeatable)")
	cmd.Flags().Float64Var(&rate, "rate", 1, "Playback rate (0.5 to 2.0, pitch preserved)")
	cmd.Flags().Float64Var(&start, "start", 0, "Start offset in seconds")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output WAV path")
	return cmd
}

func containsStem(sources []stemSource, name stems.Name) bool {
	for _, src := range sources {
		if src.Name == name {
			return true
		}
	}
	return false
}
