package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"stemdeck/internal/routing"
	"stemdeck/internal/session"
	"stemdeck/internal/stems"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var setFlag string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List configured output devices and the default stem routing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if setFlag == "" {
				setFlag = cfg.Player.StemSet
			}
			set, err := stems.ParseSet(setFlag)
			if err != nil {
				return err
			}
			devices := session.OptionsFromConfig(cfg).Devices
			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices configured")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for i, device := range devices {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), string(device.ID), device.Name})
			}
			fmt.Fprintln(out, renderTable([]tableColumn{{Header: "Key", Align: text.AlignRight}, {Header: "ID"}, {Header: "Name"}}, rows))

			router := routing.NewRouter(devices, set.Names())
			snap := router.Snapshot()
			routeRows := make([][]string, 0, len(set.Names()))
			for _, name := range set.Names() {
				ids := snap.Devices(name)
				labels := make([]string, len(ids))
				for i, id := range ids {
					labels[i] = string(id)
				}
				routeRows = append(routeRows, []string{stems.Lookup(name).Label, strings.Join(labels, ", ")})
			}
			fmt.Fprintf(out, "Default routing (%s stems):\n", set)
			fmt.Fprintln(out, renderTable([]tableColumn{{Header: "Stem"}, {Header: "Devices"}}, routeRows))
			return nil
		},
	}
	cmd.Flags().StringVar(&setFlag, "stems", "", "Stem set to show routing for (two or four)")
	return cmd
}
