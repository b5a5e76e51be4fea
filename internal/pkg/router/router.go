package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
)

// Handler is an endpoint that returns a payload or an error instead of
// writing the response itself. Payloads implementing Renderer write
// themselves; anything else is JSON encoded in the success envelope.
type Handler func(r *Request) (any, error)

// Config holds what NewRouter needs. Instrument may be nil.
type Config struct {
	Config     config.Config
	UUID       uid.StringID
	Instrument instrument.Instrumentation
}

// Router serves registered routes through a fixed middleware stack:
// panic recovery, client IP, correlation ID, access logging and tracing,
// then the maintenance switch, then anything added with Use.
type Router struct {
	hr  *httprouter.Router
	mws []Middleware
}

func NewRouter(cfg Config) *Router {
	ins := cfg.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	r := &Router{
		hr: &httprouter.Router{
			RedirectTrailingSlash: true,
			// fixed-path redirects would shadow fallback paths that differ only in case
			RedirectFixedPath:      false,
			HandleMethodNotAllowed: true,
			HandleOPTIONS:          true,
			SaveMatchedRoutePath:   true,
		},
		mws: []Middleware{
			middlewareRecoverer,
			middlewareClientIP(trustedProxies(cfg.Config)),
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, ins),
			middlewareMaintenance(cfg.Config),
		},
	}

	r.hr.NotFound = Chain(Message{Status: http.StatusNotFound, Text: "endpoint not found"}.handler(), r.mws...)
	r.hr.MethodNotAllowed = Chain(Message{Status: http.StatusMethodNotAllowed, Text: "method not allowed"}.handler(), r.mws...)

	return r
}

// Use appends middleware to the stack. Routes capture the stack when they
// are registered, so call Use first.
func (r *Router) Use(mws ...Middleware) {
	r.mws = append(r.mws, mws...)
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodGet, path, r.Adapt(h), mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodPost, path, r.Adapt(h), mws...)
}

// Handle registers a plain http.Handler behind the middleware stack.
func (r *Router) Handle(method, path string, h http.Handler, mws ...Middleware) {
	r.hr.Handler(method, path, r.wrap(h, mws))
}

// Fallback serves every request no route matched.
func (r *Router) Fallback(h http.Handler, mws ...Middleware) {
	r.hr.NotFound = r.wrap(h, mws)
}

// Adapt turns h into an http.Handler without applying any middleware.
func (r *Router) Adapt(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err == nil {
			writeResult(w, req, resp)
			return
		}

		if rec, ok := w.(interface{ SetError(error) }); ok {
			rec.SetError(err)
		}
		writeError(req.Context(), w, err)
	})
}

func (r *Router) wrap(h http.Handler, extra []Middleware) http.Handler {
	mws := make([]Middleware, 0, len(r.mws)+len(extra))
	mws = append(mws, r.mws...)
	return Chain(h, append(mws, extra...)...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}
