package inbound

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

var challengeTmpl = template.Must(template.New("challenge").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Verification required</title>
</head>
<body>
<form method="POST" action="{{.Action}}">
<label for="token">Authenticator code</label>
<input id="token" name="token" type="text" inputmode="numeric" autocomplete="one-time-code" pattern="[0-9]*" autofocus required>
<button type="submit">Verify</button>
</form>
</body>
</html>
`))

var qrCodeTmpl = template.Must(template.New("qr").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Authenticator enrollment</title>
</head>
<body>
<img src="{{.Image}}" alt="Scan with an authenticator app">
</body>
</html>
`))

var challengeFallback = []byte(`<!DOCTYPE html><html><body>Verification required</body></html>`)

// challenge is the 401 form posting the token to action.
func challenge(action string) router.HTML {
	var buf bytes.Buffer
	if err := challengeTmpl.Execute(&buf, struct{ Action string }{Action: action}); err != nil {
		slog.Error("failed to render challenge", "error", err)
		return router.HTML{Status: http.StatusUnauthorized, Body: challengeFallback}
	}
	return router.HTML{Status: http.StatusUnauthorized, Body: buf.Bytes()}
}

func qrCodePage(dataURL string) ([]byte, error) {
	var buf bytes.Buffer
	// the data URL is produced locally from a PNG encoder
	//nolint:gosec // trusted content
	if err := qrCodeTmpl.Execute(&buf, struct{ Image template.URL }{Image: template.URL(dataURL)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
