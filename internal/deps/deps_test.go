package deps

import (
	"os"
	"path/filepath"
	"testing"

	"stemdeck/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected blank command to be reported, got %#v", results[2])
	}
}

func TestOutputRequirements(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		command string
		want    int
	}{
		{"", 0},
		{"null", 0},
		{"pacat", 1},
	}
	for _, tc := range tests {
		cfg.Output.Command = tc.command
		if got := len(OutputRequirements(&cfg)); got != tc.want {
			t.Fatalf("OutputRequirements(%q) = %d entries, want %d", tc.command, got, tc.want)
		}
	}
	if OutputRequirements(nil) != nil {
		t.Fatal("expected nil config to need nothing")
	}
}
