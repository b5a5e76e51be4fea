package inbound

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// tokenField accepts a JSON string or a bare number.
type tokenField string

func (t *tokenField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = tokenField(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		// null, objects and arrays carry no token
		return nil
	}
	*t = tokenField(n.String())
	return nil
}

type tokenBody struct {
	Token tokenField `json:"token"`
}

// tokenFromRequest reads the query parameter first and then the body.
// Unreadable bodies yield an empty token.
func tokenFromRequest(r *router.Request) string {
	if t := r.GetQuery("token"); t != "" {
		return t
	}

	if r.Method != http.MethodPost || r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	switch r.ContentType() {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		v, err := r.FormValue("token")
		if err != nil {
			return ""
		}
		return v
	case "application/json":
		var body tokenBody
		if err := r.DecodeBody(&body, router.AllowUnknownFields()); err != nil {
			return ""
		}
		return strings.TrimSpace(string(body.Token))
	default:
		return ""
	}
}
