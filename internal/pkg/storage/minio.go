package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOOptions configures the MinIO driver.
type MinIOOptions struct {
	Bucket       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func NewMinIO(opts MinIOOptions) (*Bucket, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}
	return &Bucket{store: &minioStore{client: client, bucket: opts.Bucket}, name: opts.Bucket}, nil
}

func (m *minioStore) open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, minioErr(err)
	}
	// the request is only sent on the first Read or Stat
	st, err := obj.Stat()
	if err != nil {
		obj.Close() //nolint:errcheck,gosec // already failing
		return nil, ObjectInfo{}, minioErr(err)
	}
	return obj, minioInfo(key, st), nil
}

func (m *minioStore) head(ctx context.Context, key string) (ObjectInfo, error) {
	st, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, minioErr(err)
	}
	return minioInfo(key, st), nil
}

func (m *minioStore) list(ctx context.Context, dir string, _ int32, yield func(ObjectInfo) bool) error {
	// stops the listing goroutine when yield bails out early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: dir}) {
		if obj.Err != nil {
			return minioErr(obj.Err)
		}

		info := ObjectInfo{Key: obj.Key, Size: obj.Size, ETag: obj.ETag, UpdatedAt: obj.LastModified}
		if strings.HasSuffix(obj.Key, Delimiter) {
			info = ObjectInfo{Key: strings.TrimSuffix(obj.Key, Delimiter), IsDir: true}
		}
		if !yield(info) {
			return nil
		}
	}
	return nil
}

func (*minioStore) close() error { return nil }

func minioInfo(key string, st minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{Key: key, Size: st.Size, ETag: st.ETag, ContentType: st.ContentType, UpdatedAt: st.LastModified}
}

func minioErr(err error) error {
	switch resp := minio.ToErrorResponse(err); {
	case resp.StatusCode == http.StatusNotFound, resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket":
		return notFound(err)
	default:
		return err
	}
}
