package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestLogger_WritesJSONWithServiceAndTrace(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "relayer", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "ticker refreshed", "pairs", 6)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if rec["msg"] != "ticker refreshed" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["service"] != "relayer" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["trace_id"] != "abc123" {
		t.Errorf("trace_id = %v", rec["trace_id"])
	}
	if rec["pairs"] != float64(6) {
		t.Errorf("pairs = %v", rec["pairs"])
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "relayer", nil)

	log.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	log.Error(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Fatal("expected error to be written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": LevelDebug,
		"warn":  LevelWarn,
		"error": LevelError,
		"info":  LevelInfo,
		"":      LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
