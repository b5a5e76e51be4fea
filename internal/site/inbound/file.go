package inbound

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/site/usecase"
)

type fileResponse struct {
	out  *usecase.ResolveOutput
	vary bool
}

// Render implements router.Renderer.
func (f fileResponse) Render(w http.ResponseWriter, r *http.Request) {
	if f.out.Body != nil {
		defer f.out.Body.Close()
	}

	hdr := w.Header()
	hdr.Set("ETag", f.out.ETag)
	if f.vary {
		hdr.Add("Vary", "Accept-Encoding")
	}
	if !f.out.Info.UpdatedAt.IsZero() {
		hdr.Set("Last-Modified", f.out.Info.UpdatedAt.UTC().Format(http.TimeFormat))
	}

	if etagMatches(r.Header.Get("If-None-Match"), f.out.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if f.out.ContentType != "" {
		hdr.Set("Content-Type", f.out.ContentType)
	} else {
		hdr.Set("Content-Type", "application/octet-stream")
	}
	if f.out.Encoding != "" {
		hdr.Set("Content-Encoding", f.out.Encoding)
	}
	hdr.Set("Content-Length", strconv.FormatInt(f.out.Size, 10))
	hdr.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead || f.out.Body == nil {
		return
	}
	if _, err := io.Copy(w, f.out.Body); err != nil {
		slog.WarnContext(r.Context(), "failed to stream object", "path", r.URL.Path, "error", err)
	}
}

func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	weakless := strings.TrimPrefix(etag, "W/")
	for candidate := range strings.SplitSeq(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == weakless {
			return true
		}
	}
	return false
}
