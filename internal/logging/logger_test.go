package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/services"
)

func TestNewFromConfigWritesRotatingJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	var console bytes.Buffer
	logger, closer, err := logging.NewFromConfig(&cfg, &console, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("job submitted", logging.JobID("job_1"))
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(cfg.LogFilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file should hold JSON lines: %v (%q)", err, data)
	}
	if entry["msg"] != "job submitted" || entry["job_id"] != "job_1" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if !strings.Contains(console.String(), "Job job_1 – job submitted") {
		t.Fatalf("expected console subject line, got %q", console.String())
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller", logging.String("stem", "vocals"))
	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "vocals") {
		t.Fatalf("expected stem in subject, got %q", buf.String())
	}
}

func TestConsoleInfoFieldsAreBulleted(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "upload").Info("file accepted",
		logging.Int64("size_bytes", 3*1024*1024),
		logging.String("input_path", "/tmp/x.wav"),
	)
	out := buf.String()
	for _, want := range []string{"[upload]", "- Size: 3.0 MiB", "+ 1 more field hidden"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, _, err := logging.New(logging.Options{Format: "xml", Console: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected format error")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job_7")
	ctx = services.WithStage(ctx, "polling")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for key, want := range map[string]string{
		logging.FieldJobID:         "job_7",
		logging.FieldStage:         "polling",
		logging.FieldCorrelationID: "req-xyz",
	} {
		if entry[key] != want {
			t.Fatalf("field %s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "poll failed", "poll_failed",
		logging.Error(errors.New("timeout")),
		logging.String(logging.FieldErrorHint, "check backend"),
	)
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "poll_failed" {
		t.Fatalf("missing event type: %v", entry)
	}
	if entry[logging.FieldErrorHint] != "check backend" {
		t.Fatalf("caller hint should win: %v", entry)
	}
	if entry[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact: %v", entry)
	}
}

func TestWithLevelOverrideDropsQuietRecords(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quiet := logging.WithLevelOverride(base, slog.LevelWarn)
	quiet.Info("dropped")
	quiet.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
