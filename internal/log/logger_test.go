package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentLedger,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerTagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)
	l.Info("hello")
	if got := strings.Count(buf.String(), "component=ledger"); got != 1 {
		t.Fatalf("expected component once, got %d in %q", got, buf.String())
	}

	buf.Reset()
	l.WithComponent(ComponentHTTP).Info("hi")
	if !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("expected http component, got %q", buf.String())
	}
}

func TestStructuredLoggerActivityChanged(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	sl.LogActivityChanged(context.Background(), OpAdd, "u1", "2025-01-01", "a1", "Read", "Leisure", 30, 90)
	out := buf.String()
	for _, want := range []string{"operation=add", "user_id=u1", "activity_id=a1", "minutes=30", "total_minutes=90"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), OpLoad, nil)
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "error=bad") {
		t.Errorf("unexpected error log %q", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).With(FieldRequestID, "req-1")

	FromContext(WithLogger(context.Background(), l)).Info("inside")
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("expected request id in log, got %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}
}

func TestLogHTTPEndLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	r := httptest.NewRequest(http.MethodPost, "/activities?x=1", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusServiceUnavailable, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=503") {
		t.Errorf("unexpected 5xx log %q", buf.String())
	}

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, http.StatusUnprocessableEntity, 3, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("unexpected 4xx log %q", buf.String())
	}
}
