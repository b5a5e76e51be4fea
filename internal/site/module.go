package site

import (
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/site/inbound"
	"github.com/shandysiswandi/otpgate/internal/site/usecase"
)

type Dependency struct {
	Router     *router.Router             `validate:"required"`
	Storage    storage.Storage            `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Validator  validator.Validator        `validate:"required"`

	Options usecase.Options
}

// New registers the static handler as the router fallback.
func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		Storage:    dep.Storage,
		Instrument: dep.Instrument,
		Options:    dep.Options,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Options.LookupCompressed)

	return nil
}
