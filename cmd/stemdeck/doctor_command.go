package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stemdeck/internal/auth"
	"stemdeck/internal/deps"
	"stemdeck/internal/upload"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the audio output, service reachability and stored token",
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

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			statuses := deps.CheckBinaries(deps.OutputRequirements(cfg))
			if len(statuses) == 0 {
				fmt.Fprintln(out, renderStatusLine("Audio output", statusWarn, "disabled (output.command is empty); playback is silent", colorize))
			}
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			for _, status := range statuses {
				if !status.Available && !status.Optional {
					problems++
				}
			}

			client, err := ctx.separationClient(nil, logger)
			if err != nil {
				return err
			}
			constraints := upload.Resolve(cmd.Context(), client, logger)
			if constraints.Fallback {
				problems++
				fmt.Fprintln(out, renderStatusLine("Service", statusError, client.BaseURL()+" unreachable", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Service", statusOK, client.BaseURL(), colorize))
			}

			token, err := auth.NewSource(cfg).Token(cmd.Context())
			switch {
			case err != nil:
				problems++
				fmt.Fprintln(out, renderStatusLine("Token", statusWarn, "not signed in; run `stemdeck login`", colorize))
			default:
				message := "present"
				if exp, ok := auth.Expiry(token); ok {
					message = fmt.Sprintf("valid until %s", exp.Local().Format(time.RFC1123))
				}
				fmt.Fprintln(out, renderStatusLine("Token", statusOK, message, colorize))
			}

			if problems > 0 {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}
