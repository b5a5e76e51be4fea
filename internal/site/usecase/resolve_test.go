package usecase

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/site/entity"
	"github.com/spf13/afero"
)

func newUsecase(t *testing.T, files map[string]string, opts Options) *Usecase {
	t.Helper()

	mem := afero.NewMemMapFs()
	for name, body := range files {
		if err := afero.WriteFile(mem, "/public/"+name, []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	st, err := storage.NewLocal(storage.LocalOptions{Dir: "/public", Fs: mem})
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	return New(Dependency{Storage: st, Instrument: instrument.NewNoop(), Options: opts})
}

func readAll(t *testing.T, out *ResolveOutput) string {
	t.Helper()
	if out.Body == nil {
		t.Fatalf("expected body")
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(b)
}

var defaultOpts = Options{Listing: true, RedirectToSlash: true, LookupCompressed: true}

func TestResolve_File(t *testing.T) {
	// Arrange
	uc := newUsecase(t, map[string]string{"docs/readme.txt": "hello"}, defaultOpts)

	// Act
	out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/docs/readme.txt"})

	// Assert
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.Kind != entity.KindFile || out.ContentType != "text/plain; charset=utf-8" || out.Size != 5 {
		t.Fatalf("out = %+v", out)
	}
	if out.ETag == "" || out.ETag[0] != '"' {
		t.Errorf("ETag = %q", out.ETag)
	}
	if got := readAll(t, out); got != "hello" {
		t.Fatalf("body = %q", got)
	}
}

func TestResolve_SniffsUnknownExtension(t *testing.T) {
	uc := newUsecase(t, map[string]string{"blob": "%PDF-1.4\n..."}, defaultOpts)

	out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/blob"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.ContentType != "application/pdf" {
		t.Fatalf("ContentType = %q", out.ContentType)
	}
	if got := readAll(t, out); got != "%PDF-1.4\n..." {
		t.Fatalf("body = %q", got)
	}
}

func TestResolve_Compressed(t *testing.T) {
	files := map[string]string{
		"app.js":    "plain",
		"app.js.gz": "gzipped",
		"app.js.br": "brotli",
	}

	tests := []struct {
		name     string
		accept   string
		lookup   bool
		wantEnc  string
		wantBody string
	}{
		{name: "prefers brotli", accept: "gzip, br", lookup: true, wantEnc: "br", wantBody: "brotli"},
		{name: "gzip only", accept: "gzip", lookup: true, wantEnc: "gzip", wantBody: "gzipped"},
		{name: "br refused", accept: "br;q=0, gzip", lookup: true, wantEnc: "gzip", wantBody: "gzipped"},
		{name: "identity", accept: "", lookup: true, wantBody: "plain"},
		{name: "lookup disabled", accept: "br", lookup: false, wantBody: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOpts
			opts.LookupCompressed = tt.lookup
			uc := newUsecase(t, files, opts)

			out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/app.js", AcceptEncoding: tt.accept})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if out.Encoding != tt.wantEnc {
				t.Errorf("Encoding = %q, want %q", out.Encoding, tt.wantEnc)
			}
			if out.ContentType != "text/javascript; charset=utf-8" {
				t.Errorf("ContentType = %q", out.ContentType)
			}
			if got := readAll(t, out); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestResolve_Directories(t *testing.T) {
	files := map[string]string{
		"site/index.html": "<h1>site</h1>",
		"docs/b.txt":      "b",
		"docs/a.txt":      "a",
		"docs/.secret":    "s",
		"docs/zdir/x.txt": "x",
	}

	t.Run("redirect to slash", func(t *testing.T) {
		uc := newUsecase(t, files, defaultOpts)
		out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/docs"})
		if err != nil || out.Kind != entity.KindRedirect || out.Location != "/docs/" {
			t.Fatalf("Resolve() = %+v, %v", out, err)
		}
	})

	t.Run("index", func(t *testing.T) {
		uc := newUsecase(t, files, defaultOpts)
		out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/site/"})
		if err != nil || out.Kind != entity.KindFile {
			t.Fatalf("Resolve() = %+v, %v", out, err)
		}
		if got := readAll(t, out); got != "<h1>site</h1>" {
			t.Fatalf("body = %q", got)
		}
	})

	t.Run("listing hides dotfiles and puts dirs first", func(t *testing.T) {
		uc := newUsecase(t, files, defaultOpts)
		out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/docs/"})
		if err != nil || out.Kind != entity.KindListing {
			t.Fatalf("Resolve() = %+v, %v", out, err)
		}
		names := make([]string, 0, len(out.Entries))
		for _, e := range out.Entries {
			names = append(names, e.Name)
		}
		want := []string{"zdir", "a.txt", "b.txt"}
		if len(names) != len(want) {
			t.Fatalf("names = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("names = %v, want %v", names, want)
			}
		}
		if out.Entries[0].Href != "/docs/zdir/" {
			t.Errorf("dir href = %q", out.Entries[0].Href)
		}
	})

	t.Run("listing disabled", func(t *testing.T) {
		opts := defaultOpts
		opts.Listing = false
		uc := newUsecase(t, files, opts)
		_, err := uc.Resolve(context.Background(), ResolveInput{Path: "/docs/"})
		if goerror.CodeOf(err) != goerror.CodeForbidden {
			t.Fatalf("Resolve() error = %v", err)
		}
	})

	t.Run("hidden file", func(t *testing.T) {
		uc := newUsecase(t, files, defaultOpts)
		_, err := uc.Resolve(context.Background(), ResolveInput{Path: "/docs/.secret"})
		if goerror.CodeOf(err) != goerror.CodeNotFound {
			t.Fatalf("Resolve() error = %v", err)
		}
	})

	t.Run("hidden file shown", func(t *testing.T) {
		opts := defaultOpts
		opts.ShowHidden = true
		uc := newUsecase(t, files, opts)
		out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/docs/.secret"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		_ = readAll(t, out)
	})
}

func TestResolve_Missing(t *testing.T) {
	uc := newUsecase(t, nil, defaultOpts)

	_, err := uc.Resolve(context.Background(), ResolveInput{Path: "/nope.txt"})
	if goerror.CodeOf(err) != goerror.CodeNotFound {
		t.Fatalf("Resolve(missing file) error = %v", err)
	}
}

type missingRoot struct{ storage.Storage }

func (missingRoot) StatObject(context.Context, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, storage.ErrNotFound
}

func TestResolve_EmptyDirectory(t *testing.T) {
	uc := New(Dependency{Storage: missingRoot{}, Instrument: instrument.NewNoop(), Options: defaultOpts})

	_, err := uc.Resolve(context.Background(), ResolveInput{Path: "/"})
	if !errors.Is(err, ErrEmptyDirectory) {
		t.Fatalf("Resolve() error = %v, want ErrEmptyDirectory", err)
	}
}

func TestResolve_HeadOnly(t *testing.T) {
	uc := newUsecase(t, map[string]string{"a.css": "body{}"}, defaultOpts)

	out, err := uc.Resolve(context.Background(), ResolveInput{Path: "/a.css", HeadOnly: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.Body != nil || out.Size != 6 || out.ContentType != "text/css; charset=utf-8" {
		t.Fatalf("out = %+v", out)
	}
}

func TestAcceptsEncoding(t *testing.T) {
	tests := []struct {
		header string
		token  string
		want   bool
	}{
		{header: "gzip, deflate, br", token: "br", want: true},
		{header: "GZIP", token: "gzip", want: true},
		{header: "br;q=0", token: "br", want: false},
		{header: "br; q=0.5", token: "br", want: true},
		{header: "deflate", token: "gzip", want: false},
	}

	for _, tt := range tests {
		if got := acceptsEncoding(tt.header, tt.token); got != tt.want {
			t.Errorf("acceptsEncoding(%q, %q) = %v, want %v", tt.header, tt.token, got, tt.want)
		}
	}
}
