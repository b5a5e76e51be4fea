package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"strconv"

	"github.com/spf13/afero"
)

// ErrLocalDirRequired is returned when no root directory is configured.
var ErrLocalDirRequired = errors.New("storage: local directory is required")

// LocalOptions configures the local filesystem backend.
type LocalOptions struct {
	// Dir is the root directory. It is created when missing.
	Dir string
	// Fs overrides the filesystem; Dir is then a path inside it.
	Fs afero.Fs
}

// LocalAdapter implements Storage over a directory.
type LocalAdapter struct {
	fs afero.Fs
}

// NewLocal roots an adapter at opts.Dir, creating the directory if needed.
func NewLocal(opts LocalOptions) (*LocalAdapter, error) {
	if opts.Dir == "" {
		return nil, ErrLocalDirRequired
	}

	base := opts.Fs
	if base == nil {
		base = afero.NewOsFs()
	}
	if err := base.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create local dir: %w", err)
	}

	return &LocalAdapter{fs: afero.NewBasePathFs(base, opts.Dir)}, nil
}

// GetObject opens a regular file.
func (l *LocalAdapter) GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	key = CleanKey(key)
	f, err := l.fs.Open(l.name(key))
	if err != nil {
		return nil, ObjectInfo{}, localErr(err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ObjectInfo{}, localErr(err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, ObjectInfo{}, ErrNotFound
	}

	return f, localInfo(key, fi), nil
}

// StatObject returns file or directory metadata.
func (l *LocalAdapter) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	key = CleanKey(key)
	fi, err := l.fs.Stat(l.name(key))
	if err != nil {
		return ObjectInfo{}, localErr(err)
	}
	return localInfo(key, fi), nil
}

// ListObjects reads the directory at prefix. A missing directory is ErrNotFound.
func (l *LocalAdapter) ListObjects(ctx context.Context, prefix string, opts ListOptions) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := CleanKey(prefix)
	entries, err := afero.ReadDir(l.fs, l.name(dir))
	if err != nil {
		return nil, localErr(err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, fi := range entries {
		objects = append(objects, localInfo(path.Join(dir, fi.Name()), fi))
		if limitReached(len(objects), opts) {
			break
		}
	}
	return objects, nil
}

// Close is a no-op.
func (l *LocalAdapter) Close() error {
	return nil
}

func (l *LocalAdapter) name(key string) string {
	return string(os.PathSeparator) + key
}

func localInfo(key string, fi fs.FileInfo) ObjectInfo {
	info := ObjectInfo{
		Key:       key,
		UpdatedAt: fi.ModTime(),
		IsDir:     fi.IsDir(),
	}
	if !fi.IsDir() {
		info.Size = fi.Size()
		info.ContentType = mime.TypeByExtension(path.Ext(key))
		info.ETag = `"` + strconv.FormatInt(fi.ModTime().UnixMilli(), 16) + "-" + strconv.FormatInt(fi.Size(), 16) + `"`
	}
	return info
}

func localErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
