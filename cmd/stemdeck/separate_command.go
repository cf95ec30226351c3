package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"stemdeck/internal/auth"
	"stemdeck/internal/config"
	"stemdeck/internal/job"
	"stemdeck/internal/logging"
	"stemdeck/internal/objecturl"
	"stemdeck/internal/session"
	"stemdeck/internal/tui"
	"stemdeck/internal/upload"
)

func newSeparateCommand(ctx *commandContext) *cobra.Command {
	var play bool
	var exportDir string
	var asJSON bool
	var outputFlag string
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "separate FILE",
		Short: "Separate an audio file into stems",
		Long: "Validate FILE against the service's upload limits, submit it, poll until the\n" +
			"stems are ready, then download and decode them. With --play the stems open in\n" +
			"the player; with --export they are written as WAV files.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			interactive := play && !noTUI && !asJSON && isInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
			logger, hub, closer, err := ctx.commandLogger(cmd, interactive)
			if err != nil {
				return err
			}
			defer closer.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := objecturl.NewRegistry()
			client, err := ctx.separationClient(registry, logger)
			if err != nil {
				return err
			}
			sessOpts := session.OptionsFromConfig(cfg)
			sessOpts.Registry = registry
			sessOpts.Fetcher = client
			sessOpts.Logger = logger
			sess, err := session.Acquire(sessOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			file, err := sess.OpenFile(path)
			if err != nil {
				return err
			}

			jobOpts, err := job.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			jobOpts.Backend = client
			jobOpts.Loader = sess
			jobOpts.Tokens = auth.NewSource(cfg)
			jobOpts.Constraints = upload.Resolve(runCtx, client, logger)
			jobOpts.Logger = logger
			controller, err := job.New(jobOpts)
			if err != nil {
				return err
			}
			defer controller.Close()

			if interactive {
				go func() {
					if err := controller.Submit(runCtx, file); err != nil {
						logger.Debug("submit ended with error", logging.Error(err))
					}
				}()
				sink, _, err := openSink(runCtx, cfg, outputFlag)
				if err != nil {
					return err
				}
				if err := sess.StartOutput(runCtx, sink); err != nil {
					return err
				}
				return tui.Run(runCtx, tui.Options{
					Title:              "stemdeck · " + file.Name,
					Session:            sess,
					Controller:         controller,
					Hub:                hub,
					WaveformResolution: cfg.Player.WaveformResolution,
					LyricGrace:         cfg.LyricGrace(),
					Logger:             logger,
				})
			}

			out := cmd.OutOrStdout()
			var progress io.Writer = out
			if asJSON {
				progress = cmd.ErrOrStderr()
			}
			unsubscribe := controller.Subscribe(newProgressPrinter(progress, shouldColorize(progress)).observe)
			defer unsubscribe()

			if err := controller.Submit(runCtx, file); err != nil {
				return err
			}
			snap, err := controller.Wait(runCtx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					controller.Cancel()
				}
				return err
			}
			if snap.State == job.StateError {
				return snap.Err
			}

			result := separateOutput{JobID: snap.JobID, File: file.Name}
			for _, stem := range snap.Stems {
				entry := stemJSON(stem)
				if exportDir = strings.TrimSpace(exportDir); exportDir != "" {
					dir, err := config.ExpandPath(exportDir)
					if err != nil {
						return err
					}
					if entry.Exported, err = stem.Export(dir, file.Name); err != nil {
						return err
					}
				}
				result.Stems = append(result.Stems, entry)
			}

			if asJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printStemTable(out, result)
			}
			if !play {
				return nil
			}

			if err := sess.LoadStems(snap.Stems); err != nil {
				return err
			}
			sink, _, err := openSink(runCtx, cfg, outputFlag)
			if err != nil {
				return err
			}
			if err := sess.StartOutput(runCtx, sink); err != nil {
				return err
			}
			if err := playHeadless(runCtx, sess, nil, out); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&play, "play", false, "Open the stems in the player when ready")
	cmd.Flags().StringVar(&exportDir, "export", "", "Write the decoded stems as WAV files into this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&outputFlag, "output", "", "Override output.command (use null to discard audio)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Use plain progress output even on a terminal")
	return cmd
}

func printStemTable(out io.Writer, result separateOutput) {
	fmt.Fprintf(out, "Job %s: %d stems for %s\n", result.JobID, len(result.Stems), result.File)
	rows := make([][]string, 0, len(result.Stems))
	longest := 0.0
	for _, stem := range result.Stems {
		location := stem.URL
		if stem.Exported != "" {
			location = stem.Exported
		}
		longest = max(longest, stem.Duration)
		rows = append(rows, []string{stem.Label, fmt.Sprintf("%.2fs", stem.Duration), location})
	}
	columns := []tableColumn{
		{Header: "Stem"},
		{Header: "Duration", Align: text.AlignRight},
		{Header: "Location", WidthMax: locationWidth},
	}
	fmt.Fprintln(out, renderTable(columns, rows, fmt.Sprintf("%d stems", len(rows)), fmt.Sprintf("%.2fs", longest)))
}

// progressPrinter writes one line per state or stage change and per 10% of
// progress.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	sampler  *logging.ProgressSampler
}

func newProgressPrinter(out io.Writer, colorize bool) *progressPrinter {
	return &progressPrinter{out: out, colorize: colorize, sampler: logging.NewProgressSampler(10)}
}

func (p *progressPrinter) observe(snap job.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	percent := -1
	if snap.State == job.StatePolling {
		percent = snap.Status.Progress
	}
	if !p.sampler.ShouldLog(string(snap.State)+"/"+string(snap.Status.Stage), percent) {
		return
	}

	if line, ok := jobStatusLine(snap, p.colorize); ok {
		fmt.Fprintln(p.out, line)
	}
}
