package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is a structured log line retained by the StreamHub.
type LogEvent struct {
	Sequence  uint64
	Timestamp time.Time
	Level     slog.Level
	Message   string
	Component string
	JobID     string
	Details   []DetailField
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string
	Value string
}

// StreamHub keeps the most recent log events in a bounded ring so the terminal
// player can show them without writing to the screen directly.
type StreamHub struct {
	mu       sync.Mutex
	capacity int
	buffer   []LogEvent
	nextSeq  uint64
}

// NewStreamHub constructs a bounded in-memory log buffer.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 128
	}
	return &StreamHub{capacity: capacity}
}

// Publish appends a new log event to the hub.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
}

// Tail returns up to limit of the most recent events, oldest first, and the
// last sequence number published.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.buffer) {
		limit = len(h.buffer)
	}
	out := make([]LogEvent, limit)
	copy(out, h.buffer[len(h.buffer)-limit:])
	return out, h.nextSeq
}

// Since returns events with a sequence greater than seq.
func (h *StreamHub) Since(seq uint64) []LogEvent {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []LogEvent
	for _, evt := range h.buffer {
		if evt.Sequence > seq {
			out = append(out, evt)
		}
	}
	return out
}

type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(eventFromRecord(record, h.attrs))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &streamHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: merged}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs}
}

func eventFromRecord(record slog.Record, preAttrs []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     record.Level,
		Message:   strings.TrimSpace(record.Message),
	}
	kvs := make([]kv, 0, len(preAttrs)+record.NumAttrs())
	flattenAttrs(&kvs, nil, preAttrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, nil, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)
	event.Component = attrValue(kvs, FieldComponent)
	event.JobID = attrValue(kvs, FieldJobID)
	if fields, _ := selectInfoFields(kvs, infoAttrLimit); len(fields) > 0 {
		event.Details = make([]DetailField, 0, len(fields))
		for _, field := range fields {
			event.Details = append(event.Details, DetailField{Label: field.label, Value: field.value})
		}
	}
	return event
}
