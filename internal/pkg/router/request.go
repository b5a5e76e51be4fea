package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// MaxBodyBytes caps how much of a body the Request helpers will read.
const MaxBodyBytes int64 = 64 * 1024

// Request is the *http.Request handed to a Handler.
type Request struct {
	*http.Request
}

// GetQuery returns the first value of the query parameter, trimmed.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ContentType returns the media type of the body, lower-cased and without
// parameters, or "" when the header is missing or malformed.
func (r *Request) ContentType() string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// DecodeOption adjusts DecodeBody.
type DecodeOption func(*json.Decoder) bool

// AllowUnknownFields keeps DecodeBody from rejecting fields dst lacks.
func AllowUnknownFields() DecodeOption {
	return func(*json.Decoder) bool { return true }
}

// DecodeBody reads exactly one JSON value into dst. Trailing data, unknown
// fields and oversized bodies are reported as an invalid format.
func (r *Request) DecodeBody(dst any, opts ...DecodeOption) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	lenient := false
	for _, opt := range opts {
		lenient = opt(dec) || lenient
	}
	if !lenient {
		dec.DisallowUnknownFields()
	}

	if dec.Decode(dst) != nil || !errors.Is(dec.Decode(&struct{}{}), io.EOF) {
		return goerror.NewInvalidFormat()
	}
	return nil
}

// FormValue returns a trimmed field from a urlencoded or multipart body.
// Query parameters are ignored.
func (r *Request) FormValue(field string) (string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)

	var err error
	if r.ContentType() == "multipart/form-data" {
		err = r.ParseMultipartForm(MaxBodyBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", goerror.NewInvalidFormat()
	}
	return strings.TrimSpace(r.PostForm.Get(field)), nil
}
