package router

import (
	"net/http"
)

// Renderer is implemented by responses that write themselves instead of being
// wrapped in the JSON envelope.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request)
}

// Redirect sends the client to Location, setting Cookies first.
type Redirect struct {
	Location string
	// Status defaults to 302 Found.
	Status  int
	Cookies []*http.Cookie
}

// Render implements Renderer.
func (rd Redirect) Render(w http.ResponseWriter, r *http.Request) {
	for _, c := range rd.Cookies {
		http.SetCookie(w, c)
	}
	w.Header().Set("Cache-Control", "no-store")

	status := rd.Status
	if status == 0 {
		status = http.StatusFound
	}
	http.Redirect(w, r, rd.Location, status)
}

// HTML writes Body as text/html.
type HTML struct {
	// Status defaults to 200 OK.
	Status int
	Body   []byte
}

// Render implements Renderer.
func (h HTML) Render(w http.ResponseWriter, r *http.Request) {
	status := h.Status
	if status == 0 {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	//nolint:errcheck,gosec // client gone
	w.Write(h.Body)
}

// Message writes {"message": Text} with the given status.
type Message struct {
	// Status defaults to 200 OK.
	Status int
	Text   string
}

// Render implements Renderer.
func (m Message) Render(w http.ResponseWriter, _ *http.Request) {
	status := m.Status
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, map[string]string{"message": m.Text}, status)
}

func (m Message) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { m.Render(w, r) })
}
