package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/replay"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoMessaging interface {
	PublishVerifyAttempt(ctx context.Context, msg entity.VerifyAttempt) error
}

type Usecase struct {
	repoMessaging repoMessaging
	validator     validator.Validator
	totp          otp.OTP
	replay        replay.Guard
	hmac          hash.Hash
	eventID       uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
	qrSize        int
}

type Dependency struct {
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Totp          otp.OTP
	Replay        replay.Guard
	HMAC          hash.Hash
	EventID       uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
	QRCodeSize    int
}

func New(dep Dependency) *Usecase {
	rg := dep.Replay
	if rg == nil {
		rg = replay.Noop{}
	}

	return &Usecase{
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		totp:          dep.Totp,
		replay:        rg,
		hmac:          dep.HMAC,
		eventID:       dep.EventID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		qrSize:        dep.QRCodeSize,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("gate.usecase").Start(ctx, name)
}

// replayTTL covers every window in which an accepted code could validate again.
func (s *Usecase) replayTTL() time.Duration {
	return s.totp.Period() * time.Duration(2*s.totp.Skew()+1)
}
