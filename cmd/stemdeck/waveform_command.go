package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stemdeck/internal/config"
	"stemdeck/internal/waveform"
)

func newWaveformCommand(ctx *commandContext) *cobra.Command {
	var width int
	var resolution int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "waveform FILE",
		Short: "Print the amplitude envelope of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if resolution <= 0 {
				resolution = cfg.Player.WaveformResolution
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			buf, decodeErr := decodeFile(path)
			values, placeholder := waveform.SampleOrPlaceholder(buf, decodeErr, resolution)
			duration := 0.0
			if buf != nil {
				duration = buf.Duration()
			}

			if asJSON {
				payload := waveformOutput{File: path, Duration: duration, Placeholder: placeholder, Values: values}
				if decodeErr != nil {
					payload.Error = decodeErr.Error()
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if decodeErr != nil {
				fmt.Fprintln(out, renderStatusLine("Decode", statusWarn, decodeErr.Error()+"; showing placeholder", shouldColorize(out)))
			}
			glyphs, _ := waveform.Render(values, width, 0)
			fmt.Fprintln(out, glyphs)
			if !placeholder {
				fmt.Fprintf(out, "%s  %.2fs  %d Hz  %d ch\n", path, duration, buf.SampleRate, buf.NumChannels())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "Output width in columns")
	cmd.Flags().IntVar(&resolution, "resolution", 0, "Envelope resolution (defaults to player.waveform_resolution)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the envelope as JSON")
	return cmd
}
