package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"stemdeck/internal/stems"
)

// separateOutput is the --json result of `stemdeck separate`.
type separateOutput struct {
	JobID string             `json:"jobId"`
	File  string             `json:"file"`
	Stems []separateStemJSON `json:"stems"`
}

type separateStemJSON struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	URL      string  `json:"url"`
	Duration float64 `json:"durationSeconds"`
	Exported string  `json:"exported,omitempty"`
}

func stemJSON(result *stems.Result) separateStemJSON {
	return separateStemJSON{
		Name:     string(result.Name),
		Label:    result.Label,
		URL:      result.URL,
		Duration: result.Duration(),
	}
}

// waveformOutput is the --json result of `stemdeck waveform`.
type waveformOutput struct {
	File        string    `json:"file"`
	Duration    float64   `json:"duration"`
	Placeholder bool      `json:"placeholder"`
	Values      []float64 `json:"values"`
	Error       string    `json:"error,omitempty"`
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	return encodeJSON(cmd.OutOrStdout(), v)
}

// encodeJSON leaves & < > unescaped so signed stem URLs stay copyable.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
