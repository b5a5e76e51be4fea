package instrument

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const masked = "***"

// Masker redacts values whose key is one of a configured set of field names.
// Keys are compared case-insensitively. The zero value and a nil *Masker
// redact nothing.
type Masker struct {
	keys map[string]struct{}
}

// NewMasker builds a Masker for fields. Blank entries are ignored.
func NewMasker(fields []string) *Masker {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return &Masker{keys: keys}
}

// Hides reports whether values stored under key are redacted.
func (m *Masker) Hides(key string) bool {
	if m == nil || len(m.keys) == 0 {
		return false
	}
	_, ok := m.keys[strings.ToLower(key)]
	return ok
}

func (m *Masker) empty() bool {
	return m == nil || len(m.keys) == 0
}

// Value redacts decoded JSON-like data: maps are walked recursively and
// anything else is returned as is.
func (m *Masker) Value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.Hides(k) {
				out[k] = masked
				continue
			}
			out[k] = m.Value(inner)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.Hides(k) {
				out[k] = masked
				continue
			}
			out[k] = inner
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = m.Value(inner)
		}
		return out
	default:
		return v
	}
}

// Header returns a copy of h with hidden headers replaced.
func (m *Masker) Header(h http.Header) http.Header {
	if m.empty() {
		return h
	}
	out := h.Clone()
	for k := range out {
		if m.Hides(k) {
			out.Set(k, masked)
		}
	}
	return out
}

// Form redacts url-encoded values. Single values are flattened.
func (m *Masker) Form(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case m.Hides(k):
			out[k] = masked
		case len(v) == 1:
			out[k] = v[0]
		default:
			out[k] = v
		}
	}
	return out
}

// URI redacts hidden query parameters of a request URI such as
// "/verify?token=123456". ok is false when nothing was redacted. Malformed
// pairs are left out of the result.
func (m *Masker) URI(uri string) (string, bool) {
	if m.empty() {
		return uri, false
	}
	path, rawQuery, found := strings.Cut(uri, "?")
	if !found || rawQuery == "" || strings.ContainsAny(path, " \t\n") {
		return uri, false
	}
	// pairs that fail to decode are dropped, the rest are still masked
	query, err := url.ParseQuery(rawQuery)
	changed := err != nil
	for k := range query {
		if m.Hides(k) {
			query[k] = []string{masked}
			changed = true
		}
	}
	if !changed {
		return uri, false
	}
	return path + "?" + query.Encode(), true
}

// JSON redacts an encoded JSON object or array. ok is false when payload is
// not JSON.
func (m *Masker) JSON(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}
	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}
	out, err := json.Marshal(m.Value(body))
	if err != nil {
		return "", false
	}
	return string(out), true
}

// Attr redacts a log attribute, descending into groups, JSON strings, request
// URIs and map values.
func (m *Masker) Attr(a slog.Attr) slog.Attr {
	if m.Hides(a.Key) {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			out = append(out, m.Attr(ga))
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		s := a.Value.String()
		if v, ok := m.JSON([]byte(s)); ok {
			a.Value = slog.StringValue(v)
		} else if v, ok := m.URI(s); ok {
			a.Value = slog.StringValue(v)
		}
	case slog.KindAny:
		switch val := a.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			a.Value = slog.AnyValue(m.Value(val))
		case []byte:
			if v, ok := m.JSON(val); ok {
				a.Value = slog.StringValue(v)
			}
		}
	}

	return a
}
