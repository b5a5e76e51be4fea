package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when neither an object nor a directory exists at a key.
var ErrNotFound = errors.New("storage: object not found")

// Delimiter separates path segments in object keys.
const Delimiter = "/"

// Storage is a read-only view over a single bucket or directory.
//
// Keys are slash separated, relative and without a leading slash. The empty key
// is the root directory. Object stores have no real directories; a key is a
// directory when at least one object lives under key + "/".
type Storage interface {
	io.Closer

	// GetObject opens the object for reading. Directories return ErrNotFound.
	GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// StatObject returns object metadata, or a directory entry when key is a prefix.
	StatObject(ctx context.Context, key string) (ObjectInfo, error)
	// ListObjects lists the direct children of the directory at prefix.
	ListObjects(ctx context.Context, prefix string, opts ListOptions) ([]ObjectInfo, error)
}

// ListOptions configures listing behavior.
type ListOptions struct {
	// Limit caps the number of results.
	Limit int32
}

// ObjectInfo describes object metadata.
type ObjectInfo struct {
	// Key is the object key, without a trailing slash for directories.
	Key string
	// Size is the object size in bytes.
	Size int64
	// ETag is the object ETag when provided.
	ETag string
	// ContentType is the object MIME type.
	ContentType string
	// UpdatedAt is the last modified time.
	UpdatedAt time.Time
	// IsDir marks a directory (a common prefix in object stores).
	IsDir bool
}

// Name returns the last path segment of the key.
func (o ObjectInfo) Name() string {
	return path.Base(strings.TrimSuffix(o.Key, Delimiter))
}

// CleanKey normalizes a request path into a storage key.
func CleanKey(p string) string {
	k := strings.TrimPrefix(path.Clean(Delimiter+p), Delimiter)
	if k == "." {
		return ""
	}
	return k
}

func dirPrefix(key string) string {
	key = CleanKey(key)
	if key == "" {
		return ""
	}
	return key + Delimiter
}

func limitReached(n int, opts ListOptions) bool {
	return opts.Limit > 0 && int32(n) >= opts.Limit
}
