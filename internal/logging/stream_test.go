package logging

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestStreamHandlerCapturesComponentAndJob(t *testing.T) {
	hub := NewStreamHub(10)
	logger := slog.New(newStreamHandler(slog.NewTextHandler(io.Discard, nil), hub))
	logger = NewComponentLogger(logger, "job").With(String(FieldJobID, "job_1"))

	logger.Info("status changed", Int(FieldProgressPercent, 40), String("status", "processing"))

	events, seq := hub.Tail(10)
	if len(events) != 1 || seq != 1 {
		t.Fatalf("expected one event, got %d (seq %d)", len(events), seq)
	}
	evt := events[0]
	if evt.Component != "job" || evt.JobID != "job_1" {
		t.Fatalf("unexpected event identity: %+v", evt)
	}
	if len(evt.Details) < 2 || evt.Details[0].Label != "Progress" || evt.Details[0].Value != "40%" {
		t.Fatalf("expected progress detail first, got %+v", evt.Details)
	}
}

func TestStreamHubIsBounded(t *testing.T) {
	hub := NewStreamHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: string(rune('a' + i))})
	}
	events, seq := hub.Tail(0)
	if seq != 5 || len(events) != 3 {
		t.Fatalf("expected 3 retained of 5, got %d (seq %d)", len(events), seq)
	}
	if events[0].Message != "c" || events[2].Message != "e" {
		t.Fatalf("unexpected retained events: %+v", events)
	}
	if since := hub.Since(4); len(since) != 1 || since[0].Message != "e" {
		t.Fatalf("unexpected Since result: %+v", since)
	}
}

func TestNilStreamHubIsInert(t *testing.T) {
	var hub *StreamHub
	hub.Publish(LogEvent{Message: "x"})
	if events, seq := hub.Tail(5); events != nil || seq != 0 {
		t.Fatal("nil hub should return nothing")
	}
}
