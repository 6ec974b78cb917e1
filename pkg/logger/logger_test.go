package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestFileOutputCarriesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.With(String("component", "forecast")).Info("forecast done",
		String("symbol", "AAPL"),
		Int("horizon", 5),
		Float64("rmse", 1.25),
		Duration("duration_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	for _, want := range []string{`"component":"forecast"`, `"symbol":"AAPL"`, `"horizon":5`, `"rmse":1.25`, `"duration_ms":1500`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Error("ignored", Strings("symbols", []string{"A", "B"}))
}
