package logger_i

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerCarriesComponentAndCallerSource(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitTo(&buf, true)

	NewLogger("extract").With("key", "alice/a.pdf").Warn("field missing", "field", "total")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if entry["component"] != "extract" || entry["key"] != "alice/a.pdf" || entry["field"] != "total" {
		t.Errorf("unexpected attributes: %v", entry)
	}
	src, _ := entry["source"].(map[string]any)
	if file, _ := src["file"].(string); !strings.HasSuffix(file, "logger_test.go") {
		t.Errorf("source should point at the caller, got %v", src)
	}
}

func TestProdLoggerDropsDebug(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitTo(&buf, true)

	NewLogger("worker").Debug("noise")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered in prod, got %q", buf.String())
	}
}
