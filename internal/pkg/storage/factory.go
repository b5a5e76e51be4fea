package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by NewFromDriver.
const (
	DriverLocal = "local"
	DriverS3    = "s3"
	DriverGCS   = "gcs"
	DriverMinIO = "minio"
)

// ErrUnknownDriver is returned for a driver name NewFromDriver does not know.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// FactoryOptions carries the options of every driver; only the selected one is read.
type FactoryOptions struct {
	Local LocalOptions
	S3    S3Options
	GCS   GCSOptions
	MinIO MinIOOptions
}

// NewFromDriver builds the named driver. Empty selects DriverLocal.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	var (
		s   Storage
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverLocal:
		s, err = NewLocal(opts.Local)
	case DriverS3:
		s, err = NewS3(ctx, opts.S3)
	case DriverGCS:
		s, err = NewGCS(ctx, opts.GCS)
	case DriverMinIO:
		s, err = NewMinIO(opts.MinIO)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
