package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	return out
}

func TestHandler_CorrelationAndService(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "otpgate", "info", nil, nil))
	ctx := SetCorrelationID(context.Background(), "cid-1")

	// Act
	log.InfoContext(ctx, "hello")

	// Assert
	line := decodeLine(t, &buf)
	if line["_cID"] != "cid-1" {
		t.Errorf("_cID = %v, want cid-1", line["_cID"])
	}
	if line["service"] != "otpgate" {
		t.Errorf("service = %v, want otpgate", line["service"])
	}
	if line["severity"] != "INFO" {
		t.Errorf("severity = %v, want INFO", line["severity"])
	}
	if _, ok := line["ts"]; !ok {
		t.Errorf("missing ts key: %v", line)
	}
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "", "warn", nil, nil))

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %s", buf.String())
	}

	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn to be written, got %s", buf.String())
	}
}

func TestHandler_Masking(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		check func(t *testing.T, v any)
	}{
		{
			name: "plain key",
			attr: slog.String("token", "123456"),
			check: func(t *testing.T, v any) {
				if v != "***" {
					t.Errorf("token = %v, want ***", v)
				}
			},
		},
		{
			name: "query string",
			attr: slog.String("url", "/verify?next=%2F&token=123456"),
			check: func(t *testing.T, v any) {
				s, _ := v.(string)
				if strings.Contains(s, "123456") || !strings.Contains(s, "token=%2A%2A%2A") {
					t.Errorf("url = %v, want masked token", v)
				}
			},
		},
		{
			name: "json body",
			attr: slog.String("body", `{"token":"123456","other":"x"}`),
			check: func(t *testing.T, v any) {
				s, _ := v.(string)
				if strings.Contains(s, "123456") || !strings.Contains(s, `"other":"x"`) {
					t.Errorf("body = %v, want masked token", v)
				}
			},
		},
		{
			name: "map value",
			attr: slog.Any("form", map[string]string{"TOKEN": "123456"}),
			check: func(t *testing.T, v any) {
				m, _ := v.(map[string]any)
				if m["TOKEN"] != "***" {
					t.Errorf("form = %v, want masked TOKEN", v)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var buf bytes.Buffer
			log := slog.New(newHandler(&buf, "", "info", nil, []string{"token"}))

			// Act
			log.LogAttrs(context.Background(), slog.LevelInfo, "msg", tt.attr)

			// Assert
			tt.check(t, decodeLine(t, &buf)[tt.attr.Key])
		})
	}
}

func TestHandler_WithAttrsKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "otpgate", "info", nil, nil)).With("module", "gate")

	log.InfoContext(SetCorrelationID(context.Background(), "cid-2"), "hi")

	line := decodeLine(t, &buf)
	if line["_cID"] != "cid-2" || line["module"] != "gate" {
		t.Fatalf("line = %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_Disabled(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), &Config{ServiceName: "otpgate", LogLevel: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := ins.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected debug logging to be enabled on default logger")
	}
}

func TestMasker(t *testing.T) {
	m := NewMasker([]string{" Token ", "", "cookie"})

	if !m.Hides("TOKEN") || m.Hides("other") {
		t.Fatalf("Hides() mismatch")
	}

	h := http.Header{"Cookie": []string{"otpgate=abc"}, "Accept": []string{"*/*"}}
	got := m.Header(h)
	if got.Get("Cookie") != "***" || got.Get("Accept") != "*/*" || h.Get("Cookie") != "otpgate=abc" {
		t.Errorf("Header() = %v (input %v)", got, h)
	}

	form := m.Form(url.Values{"token": {"123456"}, "next": {"/a"}, "multi": {"a", "b"}})
	if form["token"] != "***" || form["next"] != "/a" {
		t.Errorf("Form() = %v", form)
	}

	if uri, ok := m.URI("/verify?token=123456"); !ok || strings.Contains(uri, "123456") {
		t.Errorf("URI() = %q, %v", uri, ok)
	}
	if _, ok := m.URI("/docs/a.txt"); ok {
		t.Errorf("URI() reported a change for a path without query")
	}

	var nilMasker *Masker
	if nilMasker.Hides("token") {
		t.Errorf("nil Masker hides keys")
	}
}

func TestMasker_URI(t *testing.T) {
	m := NewMasker([]string{"token"})

	tests := []struct {
		name    string
		uri     string
		wantOK  bool
		hidden  string
		present string
	}{
		{name: "token", uri: "/verify?token=123456", wantOK: true, hidden: "123456"},
		{name: "malformed sibling", uri: "/verify?token=123456&x=%zz", wantOK: true, hidden: "123456"},
		{name: "malformed only", uri: "/docs?x=%zz&page=2", wantOK: true, hidden: "%zz", present: "page=2"},
		{name: "nothing hidden", uri: "/docs?page=2", wantOK: false, present: "page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			uri, ok := m.URI(tt.uri)

			// Assert
			if ok != tt.wantOK {
				t.Fatalf("URI(%q) ok = %v, want %v", tt.uri, ok, tt.wantOK)
			}
			if tt.hidden != "" && strings.Contains(uri, tt.hidden) {
				t.Errorf("URI(%q) = %q, still contains %q", tt.uri, uri, tt.hidden)
			}
			if tt.present != "" && !strings.Contains(uri, tt.present) {
				t.Errorf("URI(%q) = %q, missing %q", tt.uri, uri, tt.present)
			}
		})
	}
}

func TestHandler_WithAttrsMasked(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "", "info", nil, []string{"token"})).With("token", "123456")

	log.Info("hi")

	if strings.Contains(buf.String(), "123456") {
		t.Fatalf("token leaked through With: %s", buf.String())
	}
}
