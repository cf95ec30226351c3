package lyrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// translationTolerance is the start-time slack when pairing translated lines.
const translationTolerance = 0.05

// MergeTranslation attaches translated text to lines whose start times match
// a translated line within a small tolerance. Lines without a counterpart keep
// their existing translation.
func MergeTranslation(lines, translated []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	j := 0
	for i := range out {
		for j < len(translated) && translated[j].Start < out[i].Start-translationTolerance {
			j++
		}
		if j < len(translated) && math.Abs(translated[j].Start-out[i].Start) <= translationTolerance {
			if text := strings.TrimSpace(translated[j].Text); text != "" {
				out[i].Translation = text
			}
		}
	}
	return out
}

type jsonDocument struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Lines  []Line `json:"lines"`
}

// ParseJSON accepts either {"lines": [...]} or a bare array of lines.
func ParseJSON(data []byte) ([]Line, error) {
	data = bytes.TrimSpace(data)
	var lines []Line
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &lines); err != nil {
			return nil, fmt.Errorf("decode lyric lines: %w", err)
		}
	} else {
		var doc jsonDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode lyric document: %w", err)
		}
		lines = doc.Lines
	}
	for i := range lines {
		lines[i].Text = norm.NFC.String(strings.TrimSpace(lines[i].Text))
		lines[i].Translation = norm.NFC.String(strings.TrimSpace(lines[i].Translation))
	}
	return lines, nil
}

// Load reads a .lrc or .json lyric file and validates it.
func Load(path string, duration float64) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lyrics: %w", err)
	}
	var lines []Line
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		lines, err = ParseJSON(data)
	case ".lrc", ".txt":
		lines, _, err = ParseLRC(bytes.NewReader(data), duration)
	default:
		return nil, fmt.Errorf("unsupported lyric format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(lines); err != nil {
		return nil, fmt.Errorf("invalid lyrics %s: %w", filepath.Base(path), err)
	}
	return lines, nil
}

// LoadWithTranslation loads path and, when translationPath is set, merges its
// lines as translations.
func LoadWithTranslation(path, translationPath string, duration float64) ([]Line, error) {
	lines, err := Load(path, duration)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(translationPath) == "" {
		return lines, nil
	}
	translated, err := Load(translationPath, duration)
	if err != nil {
		return nil, fmt.Errorf("translation: %w", err)
	}
	return MergeTranslation(lines, translated), nil
}
