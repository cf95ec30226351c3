package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"stemdeck/internal/audio"
	"stemdeck/internal/config"
	"stemdeck/internal/stems"
)

type stemSource struct {
	Name stems.Name
	Path string
}

// parseStemName accepts any stem from the two- or four-stem catalog.
func parseStemName(raw string) (stems.Name, error) {
	if name, ok := stems.SetFour.Parse(raw); ok {
		return name, nil
	}
	if name, ok := stems.SetTwo.Parse(raw); ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown stem %q (expected vocals, no_vocals, drums, bass or other)", raw)
}

func splitPair(raw, flag string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("--%s expects name=value, got %q", flag, raw)
	}
	return key, value, nil
}

// parseStemFlags turns repeated --stem name=path flags into sources. A stem
// may appear once.
func parseStemFlags(values []string) ([]stemSource, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one --stem name=path is required")
	}
	seen := make(map[stems.Name]struct{}, len(values))
	sources := make([]stemSource, 0, len(values))
	for _, raw := range values {
		key, path, err := splitPair(raw, "stem")
		if err != nil {
			return nil, err
		}
		name, err := parseStemName(key)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("stem %s given more than once", name)
		}
		seen[name] = struct{}{}
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, stemSource{Name: name, Path: expanded})
	}
	return sources, nil
}

// parseVolumeFlags turns --volume name=level flags into a lookup.
func parseVolumeFlags(values []string) (map[stems.Name]float64, error) {
	volumes := make(map[stems.Name]float64, len(values))
	for _, raw := range values {
		key, value, err := splitPair(raw, "volume")
		if err != nil {
			return nil, err
		}
		name, err := parseStemName(key)
		if err != nil {
			return nil, err
		}
		level, err := strconv.ParseFloat(value, 64)
		if err != nil || level < 0 || level > 1 {
			return nil, fmt.Errorf("volume for %s must be between 0 and 1, got %q", name, value)
		}
		volumes[name] = level
	}
	return volumes, nil
}

func decodeFile(path string) (*audio.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	buf, err := audio.Decode(data)
	if err != nil {
		kind := audio.LoadErrorDecode
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			kind = audio.LoadErrorUnsupported
		}
		return nil, &audio.AudioLoadError{URL: path, Kind: kind, Err: err}
	}
	return buf, nil
}
