package usecase

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"go.opentelemetry.io/otel/trace"
)

// DefaultIndex is served for a directory when present.
const DefaultIndex = "index.html"

// Options mirrors the site.* settings.
type Options struct {
	Listing          bool
	ShowHidden       bool
	RedirectToSlash  bool
	LookupCompressed bool
	Index            []string
}

type Usecase struct {
	storage storage.Storage
	ins     instrument.Instrumentation
	opts    Options
}

type Dependency struct {
	Storage    storage.Storage
	Instrument instrument.Instrumentation
	Options    Options
}

func New(dep Dependency) *Usecase {
	opts := dep.Options
	if len(opts.Index) == 0 {
		opts.Index = []string{DefaultIndex}
	}

	return &Usecase{
		storage: dep.Storage,
		ins:     dep.Instrument,
		opts:    opts,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("site.usecase").Start(ctx, name)
}
