package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemdeck/internal/stems"
	"stemdeck/internal/testsupport"
)

func TestWaveformCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeTone(t, env.baseDir, "tone.wav", 1, 220)

	out, _, err := runCLI(t, []string{"waveform", input, "--width", "24"}, env.configPath)
	if err != nil {
		t.Fatalf("waveform: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected glyph row and summary, got %q", out)
	}
	if got := len([]rune(lines[0])); got != 24 {
		t.Fatalf("glyph row width = %d, want 24", got)
	}
	requireContains(t, lines[1], "8000 Hz")
}

func TestWaveformPlaceholderOnUndecodableFile(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "broken.wav")
	if err := os.WriteFile(input, []byte("RIFF????WAVEjunk"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, _, err := runCLI(t, []string{"waveform", input, "--json", "--resolution", "16"}, env.configPath)
	if err != nil {
		t.Fatalf("waveform --json: %v", err)
	}
	var payload struct {
		Placeholder bool      `json:"placeholder"`
		Values      []float64 `json:"values"`
		Error       string    `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode waveform json: %v\n%s", err, out)
	}
	if !payload.Placeholder || payload.Error == "" {
		t.Fatalf("expected placeholder with error, got %+v", payload)
	}
	if len(payload.Values) != 16 {
		t.Fatalf("placeholder has %d values, want 16", len(payload.Values))
	}
}

func TestMixCommandWritesWAV(t *testing.T) {
	env := setupCLITestEnv(t)
	vocals := writeTone(t, env.baseDir, "vocals.wav", 1, 440)
	music := writeTone(t, env.baseDir, "music.wav", 1, 110)
	target := filepath.Join(env.baseDir, "out", "karaoke.wav")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir out: %v", err)
	}

	out, _, err := runCLI(t, []string{
		"mix",
		"--stem", "vocals=" + vocals,
		"--stem", "no_vocals=" + music,
		"--volume", "vocals=0",
		"--out", target,
	}, env.configPath)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	requireContains(t, out, "Wrote "+target)
	requireContains(t, out, "2 stems")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read mixdown: %v", err)
	}
	buf := testsupport.MustDecode(t, data)
	if d := buf.Duration(); d < 0.9 || d > 1.1 {
		t.Fatalf("mixdown duration = %.2f, want about 1s", d)
	}
}

func TestMixCommandValidatesFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	vocals := writeTone(t, env.baseDir, "vocals.wav", 0.2, 440)
	target := filepath.Join(env.baseDir, "mix.wav")

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing out", []string{"mix", "--stem", "vocals=" + vocals}, "--out"},
		{"volume without stem", []string{"mix", "--stem", "vocals=" + vocals, "--volume", "drums=0.5", "--out", target}, "no --stem drums"},
		{"volume out of range", []string{"mix", "--stem", "vocals=" + vocals, "--volume", "vocals=2", "--out", target}, "between 0 and 1"},
		{"unknown stem", []string{"mix", "--stem", "kazoo=" + vocals, "--out", target}, "unknown stem"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			requireContains(t, err.Error(), tc.want)
		})
	}
}

func TestPlayHeadless(t *testing.T) {
	env := setupCLITestEnv(t)
	vocals := writeTone(t, env.baseDir, "vocals.wav", 0.3, 440)
	music := writeTone(t, env.baseDir, "music.wav", 0.3, 110)
	lrc := filepath.Join(env.baseDir, "song.lrc")
	if err := os.WriteFile(lrc, []byte("[00:00.00]hello there\n"), 0o644); err != nil {
		t.Fatalf("write lyrics: %v", err)
	}

	out, _, err := runCLI(t, []string{
		"play", "--no-tui", "--output", "null",
		"--stem", "vocals=" + vocals,
		"--stem", "no_vocals=" + music,
		"--lyrics", lrc,
	}, env.configPath)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	requireContains(t, out, "Playing 0.3s")
	requireContains(t, out, "hello there")
	requireContains(t, out, "Playback finished")
}

func TestParseStemFlags(t *testing.T) {
	sources, err := parseStemFlags([]string{"Vocals=a.wav", "no_vocals=b.wav"})
	if err != nil {
		t.Fatalf("parseStemFlags: %v", err)
	}
	if sources[0].Name != stems.Vocals || sources[1].Name != stems.NoVocals {
		t.Fatalf("unexpected names: %+v", sources)
	}
	if _, err := parseStemFlags([]string{"vocals=a.wav", "vocals=b.wav"}); err == nil {
		t.Fatal("expected duplicate stem to fail")
	}
	if _, err := parseStemFlags([]string{"vocals"}); err == nil {
		t.Fatal("expected missing path to fail")
	}
}
