package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithSessionStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "session-abc").With("extra", "value")
	logger.Info("opened")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"session-abc"`) {
		t.Errorf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "s").(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when base is nil")
	}
	if WithSession(nil, "s") == nil {
		t.Fatal("expected nop logger for nil base")
	}
}
