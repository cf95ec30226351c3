package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should not be enabled")
	}
	logger := slog.New(h).With(String(FieldJobID, "job_1"))
	logger.Info("poll tick")
	if !strings.Contains(infoBuf.String(), `"job_id":"job_1"`) {
		t.Fatalf("expected attrs in info handler, got %q", infoBuf.String())
	}
	if warnBuf.Len() != 0 {
		t.Fatalf("warn handler should skip info records, got %q", warnBuf.String())
	}
	logger.WithGroup("poll").Warn("retrying", Int("attempt", 2))
	if !strings.Contains(warnBuf.String(), `"poll":{"attempt":2}`) {
		t.Fatalf("expected grouped attrs in warn handler, got %q", warnBuf.String())
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanoutHandlerJoinsErrorsAndKeepsWriting(t *testing.T) {
	var buf bytes.Buffer
	h := newFanoutHandler(failingHandler{}, slog.NewJSONHandler(&buf, nil))
	err := h.Handle(context.Background(), slog.NewRecord(testTime, slog.LevelInfo, "msg", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("second handler should still receive the record")
	}
}
