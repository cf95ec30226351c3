package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/lyrics"
	"stemdeck/internal/session"
	"stemdeck/internal/tui"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var stemFlags []string
	var lyricsPath string
	var translationPath string
	var rate float64
	var outputFlag string
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play local stem files in the synchronized player",
		Example: "  stemdeck play --stem vocals=out/vocals.wav --stem no_vocals=out/music.wav \\\n" +
			"    --lyrics song.lrc --rate 0.9",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sources, err := parseStemFlags(stemFlags)
			if err != nil {
				return err
			}
			interactive := !noTUI && isInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
			logger, hub, closer, err := ctx.commandLogger(cmd, interactive)
			if err != nil {
				return err
			}
			defer closer.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sessOpts := session.OptionsFromConfig(cfg)
			sessOpts.Logger = logger
			sess, err := session.Acquire(sessOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			results, err := loadLocalStems(runCtx, sess, sources)
			if err != nil {
				return err
			}
			if err := sess.LoadStems(results); err != nil {
				return err
			}
			if err := sess.Transport().SetRate(rate); err != nil {
				return err
			}

			var lines []lyrics.Line
			if lyricsPath = strings.TrimSpace(lyricsPath); lyricsPath != "" {
				if lyricsPath, err = config.ExpandPath(lyricsPath); err != nil {
					return err
				}
				lines, err = lyrics.LoadWithTranslation(lyricsPath, translationPath, sess.Transport().Duration())
				if err != nil {
					logging.WarnWithContext(logger, "lyrics unavailable", "lyrics_load_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "playback continues without lyrics"),
					)
				}
			}

			sink, sinkName, err := openSink(runCtx, cfg, outputFlag)
			if err != nil {
				return err
			}
			if err := sess.StartOutput(runCtx, sink); err != nil {
				return err
			}
			logger.Info("player started",
				logging.Int("stem_count", len(results)),
				logging.String("output", sinkName),
				logging.Bool("interactive", interactive),
			)

			if !interactive {
				err := playHeadless(runCtx, sess, lines, cmd.OutOrStdout())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			return tui.Run(runCtx, tui.Options{
				Title:              fmt.Sprintf("stemdeck · %d stems", len(results)),
				Session:            sess,
				Hub:                hub,
				Lyrics:             lines,
				LyricsPath:         lyricsPath,
				WaveformResolution: cfg.Player.WaveformResolution,
				LyricGrace:         cfg.LyricGrace(),
				Logger:             logger,
			})
		},
	}
	cmd.Flags().StringArrayVar(&stemFlags, "stem", nil, "Stem source as name=path (repeatable)")
	cmd.Flags().StringVar(&lyricsPath, "lyrics", "", "Timed lyrics (.lrc or .json); reloaded when the file changes")
	cmd.Flags().StringVar(&translationPath, "translation", "", "Translated lyrics merged line by line")
	cmd.Flags().Float64Var(&rate, "rate", 1, "Playback rate (0.5 to 2.0, pitch preserved)")
	cmd.Flags().StringVar(&outputFlag, "output", "", "Override output.command (use null to discard audio)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Play without the interactive player")
	return cmd
}
