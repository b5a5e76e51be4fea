package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrBucketRequired is returned when an object store driver has no bucket.
var ErrBucketRequired = errors.New("storage: bucket is required")

// objectStore is what a bucket driver has to provide. Keys are clean and
// non-empty; dir is "" for the root or ends in Delimiter. Not-found errors
// must wrap ErrNotFound.
type objectStore interface {
	open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	head(ctx context.Context, key string) (ObjectInfo, error)
	// list feeds the direct children of dir to yield until it returns false.
	list(ctx context.Context, dir string, limit int32, yield func(ObjectInfo) bool) error
	close() error
}

// Bucket is a Storage over an object store, where a directory is any key
// that has objects below it.
type Bucket struct {
	store objectStore
	name  string
}

func (b *Bucket) GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	key = CleanKey(key)
	if key == "" {
		return nil, ObjectInfo{}, ErrNotFound
	}
	return b.store.open(ctx, key)
}

// StatObject heads key and, when no such object exists, reports a directory
// if anything is stored below it.
func (b *Bucket) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	key = CleanKey(key)
	if key == "" {
		return ObjectInfo{IsDir: true}, nil
	}

	info, err := b.store.head(ctx, key)
	if !errors.Is(err, ErrNotFound) {
		return info, err
	}

	children, err := b.ListObjects(ctx, key, ListOptions{Limit: 1})
	if err != nil {
		return ObjectInfo{}, err
	}
	if len(children) == 0 {
		return ObjectInfo{}, fmt.Errorf("%w: %s/%s", ErrNotFound, b.name, key)
	}
	return ObjectInfo{Key: key, IsDir: true}, nil
}

func (b *Bucket) ListObjects(ctx context.Context, prefix string, opts ListOptions) ([]ObjectInfo, error) {
	dir := dirPrefix(prefix)

	objects := make([]ObjectInfo, 0)
	err := b.store.list(ctx, dir, opts.Limit, func(o ObjectInfo) bool {
		// placeholder objects some tools create for empty folders
		if o.Key+Delimiter == dir || o.Key == dir {
			return true
		}
		objects = append(objects, o)
		return !limitReached(len(objects), opts)
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (b *Bucket) Close() error {
	return b.store.close()
}

func notFound(err error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}
