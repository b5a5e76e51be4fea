package inbound

import (
	"errors"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/site/entity"
	"github.com/shandysiswandi/otpgate/internal/site/usecase"
)

// HTTPEndpoint serves static content.
type HTTPEndpoint struct {
	uc   uc
	vary bool
}

// Serve answers GET and HEAD with a file, a listing or a slash redirect.
func (h *HTTPEndpoint) Serve(r *router.Request) (any, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return nil, goerror.NewBusiness("Method Not Allowed", goerror.CodeMethodNotAllowed)
	}

	out, err := h.uc.Resolve(r.Context(), usecase.ResolveInput{
		Path:           r.URL.Path,
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		HeadOnly:       r.Method == http.MethodHead,
	})
	if errors.Is(err, usecase.ErrEmptyDirectory) {
		return router.Message{Text: "Empty directory"}, nil
	}
	if err != nil {
		return nil, err
	}

	switch out.Kind {
	case entity.KindRedirect:
		loc := out.Location
		if r.URL.RawQuery != "" {
			loc += "?" + r.URL.RawQuery
		}
		return router.Redirect{Location: loc}, nil
	case entity.KindListing:
		body, err := listingPage(out.Dir, out.Entries)
		if err != nil {
			return nil, goerror.NewServer(err)
		}
		return router.HTML{Body: body}, nil
	default:
		return fileResponse{out: out, vary: h.vary}, nil
	}
}
