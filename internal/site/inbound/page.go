package inbound

import (
	"bytes"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shandysiswandi/otpgate/internal/site/entity"
)

var listingTmpl = template.Must(template.New("listing").Funcs(template.FuncMap{
	"bytes": func(n int64) string {
		if n < 0 {
			return "-"
		}
		return humanize.Bytes(uint64(n))
	},
	"when": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Dir}}</title>
</head>
<body>
<h1>{{.Dir}}</h1>
<ul>
{{- if ne .Dir "/"}}
<li><a href="../">../</a></li>
{{- end}}
{{- range .Entries}}
<li><a href="{{.Href}}">{{.Name}}{{if .IsDir}}/{{end}}</a>{{if not .IsDir}} <small>{{bytes .Size}} {{when .UpdatedAt}}</small>{{end}}</li>
{{- end}}
</ul>
</body>
</html>
`))

func listingPage(dir string, entries []entity.Entry) ([]byte, error) {
	var buf bytes.Buffer
	err := listingTmpl.Execute(&buf, struct {
		Dir     string
		Entries []entity.Entry
	}{Dir: dir, Entries: entries})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
