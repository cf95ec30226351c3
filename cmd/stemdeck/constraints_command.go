package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stemdeck/internal/upload"
)

func newConstraintsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "constraints",
		Short: "Show the upload limits advertised by the separation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _, closer, err := ctx.commandLogger(cmd, false)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := ctx.separationClient(nil, logger)
			if err != nil {
				return err
			}
			constraints := upload.Resolve(cmd.Context(), client, logger)
			if asJSON {
				return writeJSON(cmd, struct {
					upload.Constraints
					Fallback bool `json:"fallback"`
				}{constraints, constraints.Fallback})
			}

			out := cmd.OutOrStdout()
			source := client.BaseURL()
			if constraints.Fallback {
				source = "built-in defaults (service unreachable)"
			}
			fmt.Fprintf(out, "Source: %s\n", source)
			rows := [][]string{
				{"Extensions", strings.Join(constraints.Extensions, ", ")},
				{"MIME types", strings.Join(constraints.MIMETypes, ", ")},
				{"Max size", humanize.IBytes(uint64(constraints.MaxBytes))},
				{"From service", yesNo(!constraints.Fallback)},
			}
			fmt.Fprintln(out, renderTable([]tableColumn{{Header: "Limit"}, {Header: "Value"}}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
