package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/gate/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type VerifyTokenInput struct {
	Token      string `validate:"required,numeric,min=6,max=8"`
	Method     string
	Path       string
	RemoteAddr string
}

func (s *Usecase) VerifyToken(ctx context.Context, in VerifyTokenInput) error {
	ctx, span := s.startSpan(ctx, "VerifyToken")
	defer span.End()

	in.Token = strings.TrimSpace(in.Token)
	now := s.clock.Now()

	if err := s.validator.Validate(in); err != nil {
		slog.InfoContext(ctx, "totp token missing or malformed", "path", in.Path)
		s.audit(ctx, in, entity.OutcomeMissing)
		return goerror.NewBusiness("invalid token", goerror.CodeUnauthorized)
	}

	if !s.totp.Validate(in.Token, now) {
		slog.InfoContext(ctx, "totp token rejected", "path", in.Path, "remote_addr", in.RemoteAddr)
		s.audit(ctx, in, entity.OutcomeRejected)
		return goerror.NewBusiness("invalid token", goerror.CodeUnauthorized)
	}

	key, err := s.hmac.Hash(in.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash totp token", "error", err)
		return goerror.NewServer(err)
	}

	fresh, err := s.replay.Claim(ctx, string(key), s.replayTTL())
	if err != nil {
		slog.ErrorContext(ctx, "failed to claim totp token", "error", err)
		return goerror.NewServer(err)
	}
	if !fresh {
		slog.WarnContext(ctx, "totp token replayed", "path", in.Path, "remote_addr", in.RemoteAddr)
		s.audit(ctx, in, entity.OutcomeReplayed)
		return goerror.NewBusiness("invalid token", goerror.CodeUnauthorized)
	}

	s.audit(ctx, in, entity.OutcomeAccepted)
	return nil
}

// audit publishes in the background; the response never waits on the broker.
func (s *Usecase) audit(ctx context.Context, in VerifyTokenInput, outcome entity.Outcome) {
	if s.repoMessaging == nil {
		return
	}

	msg := entity.VerifyAttempt{
		ID:         s.eventID.Generate(),
		Outcome:    outcome,
		Method:     in.Method,
		Path:       in.Path,
		RemoteAddr: in.RemoteAddr,
		At:         s.clock.Now(),
	}

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishVerifyAttempt(ctx, msg); err != nil {
			slog.WarnContext(ctx, "failed to publish verify attempt", "id", msg.ID, "error", err)
		}
		return nil
	})
}
