package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures the S3 driver. Static keys are optional; without
// them the default AWS credential chain applies. Endpoint points the client
// at an S3 compatible service and then defaults Region to us-east-1.
type S3Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UsePathStyle bool
}

type s3Store struct {
	client *s3.Client
	bucket string
}

func NewS3(ctx context.Context, opts S3Options) (*Bucket, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	region := opts.Region
	if region == "" && opts.Endpoint != "" {
		region = "us-east-1"
	}

	var load []func(*config.LoadOptions) error
	if region != "" {
		load = append(load, config.WithRegion(region))
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		load = append(load, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, fmt.Errorf("storage: aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &Bucket{store: &s3Store{client: client, bucket: opts.Bucket}, name: opts.Bucket}, nil
}

func (s *s3Store) open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, ObjectInfo{}, s3Err(err)
	}
	return out.Body, ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        aws.ToString(out.ETag),
		ContentType: aws.ToString(out.ContentType),
		UpdatedAt:   aws.ToTime(out.LastModified),
	}, nil
}

func (s *s3Store) head(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return ObjectInfo{}, s3Err(err)
	}
	return ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        aws.ToString(out.ETag),
		ContentType: aws.ToString(out.ContentType),
		UpdatedAt:   aws.ToTime(out.LastModified),
	}, nil
}

func (s *s3Store) list(ctx context.Context, dir string, limit int32, yield func(ObjectInfo) bool) error {
	in := &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &dir, Delimiter: aws.String(Delimiter)}
	if limit > 0 {
		in.MaxKeys = aws.Int32(limit)
	}

	pages := s3.NewListObjectsV2Paginator(s.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return s3Err(err)
		}
		for _, cp := range page.CommonPrefixes {
			if !yield(ObjectInfo{Key: strings.TrimSuffix(aws.ToString(cp.Prefix), Delimiter), IsDir: true}) {
				return nil
			}
		}
		for _, obj := range page.Contents {
			if !yield(ObjectInfo{
				Key:       aws.ToString(obj.Key),
				Size:      aws.ToInt64(obj.Size),
				ETag:      aws.ToString(obj.ETag),
				UpdatedAt: aws.ToTime(obj.LastModified),
			}) {
				return nil
			}
		}
	}
	return nil
}

func (*s3Store) close() error { return nil }

func s3Err(err error) error {
	var (
		noKey    *types.NoSuchKey
		missing  *types.NotFound
		noBucket *types.NoSuchBucket
	)
	if errors.As(err, &noKey) || errors.As(err, &missing) || errors.As(err, &noBucket) {
		return notFound(err)
	}
	return err
}
