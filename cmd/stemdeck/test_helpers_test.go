package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemdeck/internal/config"
	"stemdeck/internal/mockbackend"
	"stemdeck/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	backend    *mockbackend.Server
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("STEMDECK_TOKEN", "")
	t.Setenv("STEMDECK_API_URL", "")
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	cfg.Logging.Level = "warn"
	cfg.Player.SampleRate = 8000

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// withBackend starts an in-memory separation service and points the config
// at it.
func (e *cliTestEnv) withBackend(t *testing.T, opts mockbackend.Options) *cliTestEnv {
	t.Helper()

	e.backend = mockbackend.New(opts)
	srv := httptest.NewServer(e.backend.Handler())
	t.Cleanup(srv.Close)
	e.cfg.Backend.BaseURL = srv.URL
	writeTestConfig(t, e.configPath, e.cfg)
	return e
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func writeTone(t *testing.T, dir, name string, seconds, freq float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteToneWAV(t, path, 8000, seconds, freq)
	return path
}
