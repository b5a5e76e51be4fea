package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSOptions configures the Google Cloud Storage driver. Client, when set,
// is used instead of building one from ClientOptions.
type GCSOptions struct {
	Bucket        string
	Client        *gcs.Client
	ClientOptions []option.ClientOption
}

type gcsStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

func NewGCS(ctx context.Context, opts GCSOptions) (*Bucket, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client := opts.Client
	if client == nil {
		var err error
		if client, err = gcs.NewClient(ctx, opts.ClientOptions...); err != nil {
			return nil, fmt.Errorf("storage: gcs client: %w", err)
		}
	}
	return &Bucket{store: &gcsStore{client: client, bucket: client.Bucket(opts.Bucket)}, name: opts.Bucket}, nil
}

func (g *gcsStore) open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, ObjectInfo{}, gcsErr(err)
	}
	return r, ObjectInfo{
		Key:         key,
		Size:        r.Attrs.Size,
		ContentType: r.Attrs.ContentType,
		UpdatedAt:   r.Attrs.LastModified,
	}, nil
}

func (g *gcsStore) head(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := g.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return ObjectInfo{}, gcsErr(err)
	}
	return gcsInfo(attrs), nil
}

func (g *gcsStore) list(ctx context.Context, dir string, limit int32, yield func(ObjectInfo) bool) error {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: dir, Delimiter: Delimiter})
	if limit > 0 {
		it.PageInfo().MaxSize = int(limit)
	}

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return gcsErr(err)
		}
		if !yield(gcsInfo(attrs)) {
			return nil
		}
	}
}

func (g *gcsStore) close() error {
	return g.client.Close()
}

// gcsInfo maps attrs; a non-empty Prefix marks a synthetic directory entry.
func gcsInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	if attrs.Prefix != "" {
		return ObjectInfo{Key: strings.TrimSuffix(attrs.Prefix, Delimiter), IsDir: true}
	}
	return ObjectInfo{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
	}
}

func gcsErr(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return notFound(err)
	}
	return err
}
