package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"log/slog"

	coreconfig "github.com/businesssandbox/regbot/core/config"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return h, aw
}

func drain(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, slog.New(h).With("component", "flow"), slog.LevelInfo, "flow.submit",
		slog.String("status", "ok"),
		slog.String("segment", "ua"),
	)

	line := drain(t, aw, buf)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=flow", "event=flow.submit", "status=ok", "rid=rid-123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if !strings.Contains(line, "user_id=7") || !strings.Contains(line, "chat_id=9") {
		t.Fatalf("update meta missing: %s", line)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(Background(), "rid-json")

	LogEvent(ctx, slog.New(h).With("component", "sink"), slog.LevelError, "sink.append",
		slog.String("status", "fail"),
		slog.String("err", "quota exceeded"),
	)

	line := drain(t, aw, buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"sink"`, `"event":"sink.append"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	cases := []struct {
		name     string
		format   logFormat
		wantFull bool
	}{
		{"kv", formatKV, false},
		{"json", formatJSON, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			h, aw := newTestHandler(buf, tc.format)
			raw := "123:456:789"
			LogEvent(WithRID(Background(), raw), slog.New(h), slog.LevelInfo, "rid.test")

			line := drain(t, aw, buf)
			if !strings.Contains(line, CompactRID(raw)) {
				t.Fatalf("expected compact rid, got %s", line)
			}
			if got := strings.Contains(line, "rid_full"); got != tc.wantFull {
				t.Fatalf("rid_full present = %v, want %v: %s", got, tc.wantFull, line)
			}
		})
	}
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(buf, formatKV)
	LogEvent(Background(), slog.New(h), slog.LevelInfo, "timing",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("append_duration", 20*time.Millisecond),
		slog.Duration("backoff", 2*time.Second),
	)
	line := drain(t, aw, buf)
	for _, want := range []string{"duration_ms=2", "append_duration_ms=20", "backoff_ms=2000"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
}

func TestStructuredHandlerDropsBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(buf, formatKV)
	LogEvent(Background(), slog.New(h), slog.LevelDebug, "noise")
	if line := drain(t, aw, buf); line != "" {
		t.Fatalf("debug line written at info level: %s", line)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"25":   {1, 25},
		"0":    {0, 0},
		"bad":  {0, 0},
		"":     {0, 0},
	}
	for in, want := range cases {
		num, den := parseRatio(in)
		if num != want[0] || den != want[1] {
			t.Errorf("parseRatio(%q) = %d/%d, want %d/%d", in, num, den, want[0], want[1])
		}
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	// Package-level helpers must be no-ops before InitLogger.
	Info(Background(), "flow", "flow.start", slog.String("status", "ok"))
	Error(Background(), "sink", "sink.append")
}

func TestResolveSettings(t *testing.T) {
	s := resolve(nil)
	if s.level != slog.LevelInfo || s.format != formatJSON || s.num != 1 || s.den != 50 {
		t.Fatalf("defaults = %+v", s)
	}

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "Warning",
		Profile:     "Dev",
		KeysOrder:   "ts, event ,,status",
		DebugSample: "off",
		Dir:         "/var/log/regbot",
		BotFile:     "bot.log",
	}}
	s = resolve(cfg)
	if s.level != slog.LevelWarn {
		t.Fatalf("level = %v", s.level)
	}
	if s.format != formatKV {
		t.Fatalf("dev profile must default to kv, got %s", s.format)
	}
	if strings.Join(s.keyOrder, ",") != "ts,event,status" {
		t.Fatalf("key order = %v", s.keyOrder)
	}
	if s.num != 0 || s.den != 0 {
		t.Fatalf("unparseable sample ratio must disable sampling, got %d/%d", s.num, s.den)
	}
	if s.file != "/var/log/regbot/bot.log" {
		t.Fatalf("file = %q", s.file)
	}
}

func TestComponentBeforeInit(t *testing.T) {
	if L != nil {
		t.Skip("logger already initialized")
	}
	if Component("sink") != nil {
		t.Fatal("component logger must be nil before init")
	}
}

func TestContextScope(t *testing.T) {
	ctx := WithRID(nil, "1:2:3")
	ctx = WithUpdateMeta(ctx, 10, 20, 30)
	ctx = WithHandler(ctx, "start")
	ctx = WithHandler(ctx, "")

	if RIDFrom(ctx) != "1:2:3" || HandlerFrom(ctx) != "start" {
		t.Fatalf("rid/handler lost: %q %q", RIDFrom(ctx), HandlerFrom(ctx))
	}
	if UpdateIDFrom(ctx) != 10 || UserIDFrom(ctx) != 20 || ChatIDFrom(ctx) != 30 {
		t.Fatalf("meta = %d %d %d", UpdateIDFrom(ctx), UserIDFrom(ctx), ChatIDFrom(ctx))
	}
	if UserIDFrom(Background()) != 0 || RIDFrom(nil) != "" {
		t.Fatal("empty context must yield zero values")
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "Ole\u200bna\x07\tK"
	if got := Sanitize(in); got != "Olena\tK" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("Київ-Орхус", 4); got != "Київ" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("SanitizeLimit zero = %q", got)
	}
}

func TestCompactRIDInput(t *testing.T) {
	cases := map[string]string{
		"35:36:1": "z.10.1",
		"a:b:c":   "a:b:c",
		"1:2":     "1:2",
		"":        "",
		" 1:1:1 ": "1.1.1",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Errorf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeEnums(t *testing.T) {
	if got := normalizeLevel("warning"); got != "WARN" {
		t.Fatalf("level = %s", got)
	}
	if got := normalizeLevel(""); got != "INFO" {
		t.Fatalf("empty level = %s", got)
	}
	if s, ok := normalizeStatus(" OK "); s != "ok" || !ok {
		t.Fatalf("status = %s %v", s, ok)
	}
	if _, ok := normalizeOutcome("exploded"); ok {
		t.Fatal("unknown outcome accepted")
	}
}

func TestStatus(t *testing.T) {
	cases := map[string]error{
		"ok":        nil,
		"fail":      io.ErrUnexpectedEOF,
		"cancelled": fmt.Errorf("append: %w", context.Canceled),
	}
	for want, err := range cases {
		if got := Status(err); got != want {
			t.Errorf("Status(%v) = %q, want %q", err, got, want)
		}
	}
	if RoundMS(-time.Second) != 0 || RoundMS(1499*time.Microsecond) != time.Millisecond {
		t.Fatal("RoundMS rounding")
	}
}
