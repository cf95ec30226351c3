package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"stemdeck/internal/job"
	"stemdeck/internal/logging"
	"stemdeck/internal/lyrics"
)

// Run shows the player until the user quits or ctx ends. Controller
// snapshots and lyric file reloads are forwarded into the program.
func Run(ctx context.Context, opts Options) error {
	model, err := New(opts)
	if err != nil {
		return err
	}
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if opts.Controller != nil {
		unsubscribe := opts.Controller.Subscribe(func(snap job.Snapshot) {
			program.Send(jobMsg(snap))
		})
		defer unsubscribe()
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if opts.LyricsPath != "" {
		duration := opts.Session.Transport().Duration()
		go func() {
			err := lyrics.Watch(watchCtx, opts.LyricsPath, duration, model.logger, func(lines []lyrics.Line, err error) {
				program.Send(lyricsMsg{lines: lines, err: err})
			})
			if err != nil {
				model.logger.Warn("lyric watcher stopped", logging.Error(err))
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
