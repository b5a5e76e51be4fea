package inbound

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/gate/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/policy"
	"github.com/shandysiswandi/otpgate/internal/pkg/replay"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const testSessionKey = "2fa-verified"

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type harness struct {
	handler http.Handler
	clock   *clock.Frozen
	totp    *otp.TOTP
	store   *session.CookieStore
	gm      *goroutine.Manager
}

func newHarness(t *testing.T, prefix string, publicPaths ...string) *harness {
	t.Helper()

	clk := clock.NewFrozen(time.Unix(1700000025, 0))

	totp, err := otp.NewTOTP(otp.Config{Secret: "JBSWY3DPEHPK3PXP", Label: "ops", Issuer: "otpgate", Skew: 1})
	if err != nil {
		t.Fatalf("NewTOTP() error = %v", err)
	}
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}
	store, err := session.NewCookieStore(session.Config{
		Secret: strings.Repeat("s", 32),
		Clock:  clk,
		UUID:   fixedID("jti"),
	})
	if err != nil {
		t.Fatalf("NewCookieStore() error = %v", err)
	}
	routes, err := entity.NewRoutes(prefix, "")
	if err != nil {
		t.Fatalf("NewRoutes() error = %v", err)
	}
	rules := []policy.Rule{
		{Path: routes.Verify, Methods: []string{http.MethodGet, http.MethodPost}},
		{Path: routes.QRCode, Methods: []string{http.MethodGet}},
		{Path: entity.HealthPath, Methods: []string{http.MethodGet}},
	}
	for _, p := range publicPaths {
		rules = append(rules, policy.Rule{Path: p, Methods: []string{http.MethodGet, http.MethodHead}})
	}
	pol, err := policy.New(rules...)
	if err != nil {
		t.Fatalf("policy.New() error = %v", err)
	}

	gm := goroutine.NewManager(4)
	uc := usecase.New(usecase.Dependency{
		Validator:  v,
		Totp:       totp,
		Replay:     replay.NewMemory(clk),
		HMAC:       hash.NewHMACSHA256("k"),
		EventID:    fixedID("evt"),
		Clock:      clk,
		Instrument: instrument.NewNoop(),
		Goroutine:  gm,
	})

	r := router.NewRouter(router.Config{UUID: fixedID("cid")})
	RegisterHTTPEndpoint(r, uc, Config{
		Routes:        routes,
		Session:       store,
		SessionKey:    testSessionKey,
		Policy:        pol,
		QRCodeEnabled: true,
	})
	r.GET(entity.HealthPath, func(*router.Request) (any, error) {
		return router.Message{Text: "ok"}, nil
	})
	r.Fallback(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("protected:" + r.URL.Path))
	}))

	t.Cleanup(func() { _ = gm.Wait() })

	return &harness{handler: r, clock: clk, totp: totp, store: store, gm: gm}
}

func (h *harness) code(t *testing.T) string {
	t.Helper()
	c, err := h.totp.GenerateCode(h.clock.Now())
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}
	return c
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	c, err := h.store.Cookie(httptest.NewRequest(http.MethodGet, "/", nil), testSessionKey, "true")
	if err != nil {
		t.Fatalf("Cookie() error = %v", err)
	}
	return c
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func assertChallenge(t *testing.T, rec *httptest.ResponseRecorder, action string) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<form method="POST" action="`+action+`"`) || !strings.Contains(body, `name="token"`) {
		t.Fatalf("challenge form missing, body = %s", body)
	}
	if strings.Contains(body, "protected:") {
		t.Fatalf("protected content leaked")
	}
}

func TestVerify_GetValidCodeRedirects(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/verify?token="+h.code(t), nil)

	// Act
	rec := h.do(req)

	// Assert
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("Location = %q, want /", loc)
	}
	c := findCookie(rec, session.DefaultCookieName)
	if c == nil || c.Value == "" || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("session cookie = %+v", c)
	}

	follow := httptest.NewRequest(http.MethodGet, "/docs/", nil)
	follow.AddCookie(c)
	if rec := h.do(follow); rec.Code != http.StatusOK || rec.Body.String() != "protected:/docs/" {
		t.Fatalf("follow-up = %d %q", rec.Code, rec.Body.String())
	}
}

func TestVerify_GetWrongCodeChallenges(t *testing.T) {
	h := newHarness(t, "")
	wrong := "000000"
	if h.totp.Validate(wrong, h.clock.Now()) {
		wrong = "999999"
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/verify?token="+wrong, nil))

	assertChallenge(t, rec, "/verify")
	if findCookie(rec, session.DefaultCookieName) != nil {
		t.Fatalf("cookie must not be set on failure")
	}
}

func TestGate_SessionReachesProtectedContent(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.AddCookie(h.sessionCookie(t))

	rec := h.do(req)

	if rec.Code != http.StatusOK || rec.Body.String() != "protected:/anything" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestVerify_WithSessionRedirectsToPrefixRoot(t *testing.T) {
	h := newHarness(t, "/2fa")
	req := httptest.NewRequest(http.MethodGet, "/2fa/verify", nil)
	req.AddCookie(h.sessionCookie(t))

	rec := h.do(req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/2fa/" {
		t.Fatalf("response = %d Location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestVerify_PostAcceptedThenExpiredCodeChallenges(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	body := `{"token":"` + h.code(t) + `","extra":true}`
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return h.do(req)
	}

	// Act
	first := post()
	h.clock.Advance(90 * time.Second)
	second := post()

	// Assert
	if first.Code != http.StatusFound || first.Header().Get("Location") != "/" {
		t.Fatalf("first = %d Location=%q", first.Code, first.Header().Get("Location"))
	}
	if findCookie(first, session.DefaultCookieName) == nil {
		t.Fatalf("first response must set the session cookie")
	}
	assertChallenge(t, second, "/verify")
}

func TestVerify_BodyEncodings(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        func(code string) string
		want        int
	}{
		{
			name:        "urlencoded",
			contentType: "application/x-www-form-urlencoded",
			body:        func(code string) string { return url.Values{"token": {code}}.Encode() },
			want:        http.StatusFound,
		},
		{
			name:        "multipart",
			contentType: "multipart/form-data; boundary=xx",
			body: func(code string) string {
				return "--xx\r\nContent-Disposition: form-data; name=\"token\"\r\n\r\n" + code + "\r\n--xx--\r\n"
			},
			want: http.StatusFound,
		},
		{
			name:        "json number",
			contentType: "application/json",
			body:        func(code string) string { return `{"token":` + strings.TrimLeft(code, "0") + `}` },
			want:        http.StatusFound,
		},
		{
			name:        "missing field",
			contentType: "application/json",
			body:        func(string) string { return `{"code":"123456"}` },
			want:        http.StatusUnauthorized,
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        func(string) string { return `{"token":` },
			want:        http.StatusUnauthorized,
		},
		{
			name:        "plain text ignored",
			contentType: "text/plain",
			body:        func(code string) string { return code },
			want:        http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			code := h.code(t)
			if tt.name == "json number" && code[0] == '0' {
				t.Skip("leading zero cannot round-trip through a JSON number")
			}

			req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(tt.body(code)))
			req.Header.Set("Content-Type", tt.contentType)
			rec := h.do(req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestVerify_QueryWinsOverBody(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodPost, "/verify?token="+h.code(t), strings.NewReader("token=000000"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if rec := h.do(req); rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
}

func TestGate_Rejects(t *testing.T) {
	h := newHarness(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		cookie *http.Cookie
	}{
		{name: "root", method: http.MethodGet, path: "/"},
		{name: "nested", method: http.MethodGet, path: "/a/b/c.txt"},
		{name: "head", method: http.MethodHead, path: "/a"},
		{name: "post to content", method: http.MethodPost, path: "/upload"},
		{name: "garbage cookie", method: http.MethodGet, path: "/", cookie: &http.Cookie{Name: session.DefaultCookieName, Value: "garbage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := h.do(req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if tt.method == http.MethodHead {
				if rec.Body.Len() != 0 {
					t.Fatalf("HEAD body = %q", rec.Body.String())
				}
				return
			}
			assertChallenge(t, rec, "/verify")
		})
	}
}

func TestGate_AnonymousRoutes(t *testing.T) {
	h := newHarness(t, "")

	health := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health = %d", health.Code)
	}

	qr := h.do(httptest.NewRequest(http.MethodGet, "/qr-code", nil))
	if qr.Code != http.StatusOK || !strings.HasPrefix(qr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("qr = %d %q", qr.Code, qr.Header().Get("Content-Type"))
	}
	if !strings.Contains(qr.Body.String(), `src="data:image/png;base64,`) {
		t.Fatalf("qr body missing image: %s", qr.Body.String())
	}
}

func TestGate_PublicPathsRejectDotSegments(t *testing.T) {
	h := newHarness(t, "", "/assets/*")

	tests := []struct {
		name   string
		target string
		want   int
		body   string
	}{
		{name: "public file", target: "/assets/app.css", want: http.StatusOK, body: "protected:/assets/app.css"},
		{name: "dot dot escape", target: "/assets/../secret.txt", want: http.StatusUnauthorized},
		{name: "encoded dot dot escape", target: "/assets/%2e%2e/secret.txt", want: http.StatusUnauthorized},
		{name: "dot segment", target: "/assets/./app.css", want: http.StatusUnauthorized},
		{name: "double slash", target: "/assets//app.css", want: http.StatusUnauthorized},
		{name: "protected file", target: "/secret.txt", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rec := h.do(httptest.NewRequest(http.MethodGet, tt.target, nil))

			// Assert
			if tt.want == http.StatusUnauthorized {
				assertChallenge(t, rec, "/verify")
				return
			}
			if rec.Code != tt.want || rec.Body.String() != tt.body {
				t.Fatalf("response = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.want, tt.body)
			}
		})
	}
}

func TestGate_SessionAllowsUncleanPaths(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/docs/../readme.txt", nil)
	req.AddCookie(h.sessionCookie(t))

	rec := h.do(req)

	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "protected:") {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGate_VerifyIdempotentRevisit(t *testing.T) {
	h := newHarness(t, "")
	code := h.code(t)

	first := h.do(httptest.NewRequest(http.MethodGet, "/verify?token="+code, nil))
	c := findCookie(first, session.DefaultCookieName)
	if first.Code != http.StatusFound || c == nil {
		t.Fatalf("first = %d", first.Code)
	}

	// the same link revisited with the session is a plain redirect, not a replay
	again := httptest.NewRequest(http.MethodGet, "/verify?token="+code, nil)
	again.AddCookie(c)
	rec := h.do(again)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("revisit = %d Location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

type failingUC struct{}

func (failingUC) VerifyToken(context.Context, usecase.VerifyTokenInput) error {
	return goerror.NewServer(context.DeadlineExceeded)
}

func (failingUC) QRCode(context.Context) (*usecase.QRCodeOutput, error) {
	return nil, goerror.NewServer(context.DeadlineExceeded)
}

func TestVerify_ServerError(t *testing.T) {
	h := newHarness(t, "")
	routes, _ := entity.NewRoutes("", "")
	pol, _ := policy.New(policy.Rule{Path: routes.Verify, Methods: []string{http.MethodGet}})

	r := router.NewRouter(router.Config{UUID: fixedID("cid")})
	RegisterHTTPEndpoint(r, failingUC{}, Config{Routes: routes, Session: h.store, SessionKey: testSessionKey, Policy: pol})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify?token=123456", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
