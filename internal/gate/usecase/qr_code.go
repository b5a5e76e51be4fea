package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/qrcode"
)

type QRCodeOutput struct {
	URL     string
	DataURL string
}

func (s *Usecase) QRCode(ctx context.Context) (*QRCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "QRCode")
	defer span.End()

	url := s.totp.URL()
	data, err := qrcode.DataURL(url, s.qrSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render qr code", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &QRCodeOutput{URL: url, DataURL: data}, nil
}
