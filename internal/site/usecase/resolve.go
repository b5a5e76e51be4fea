package usecase

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/site/entity"
)

// ErrEmptyDirectory marks a listing whose directory does not exist.
var ErrEmptyDirectory = errors.New("site: empty directory")

const sniffLen = 3072

type ResolveInput struct {
	// Path is the raw URL path.
	Path string
	// AcceptEncoding is the request's Accept-Encoding header.
	AcceptEncoding string
	// HeadOnly skips opening the object.
	HeadOnly bool
}

type ResolveOutput struct {
	Kind entity.Kind

	// KindFile
	Body        io.ReadCloser
	Size        int64
	ETag        string
	ContentType string
	Encoding    string
	Info        storage.ObjectInfo

	// KindListing
	Dir     string
	Entries []entity.Entry

	// KindRedirect
	Location string
}

var encodings = []struct {
	token string
	ext   string
}{
	{token: "br", ext: ".br"},
	{token: "gzip", ext: ".gz"},
}

func (s *Usecase) Resolve(ctx context.Context, in ResolveInput) (*ResolveOutput, error) {
	ctx, span := s.startSpan(ctx, "Resolve")
	defer span.End()

	key := storage.CleanKey(in.Path)
	if !s.opts.ShowHidden && isHidden(key) {
		return nil, goerror.NewBusiness("Not Found", goerror.CodeNotFound)
	}

	info, err := s.storage.StatObject(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		if key == "" {
			return nil, ErrEmptyDirectory
		}
		return nil, goerror.NewBusiness("Not Found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to stat object", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !info.IsDir {
		return s.file(ctx, key, info, in)
	}

	if key != "" && s.opts.RedirectToSlash && !strings.HasSuffix(in.Path, "/") {
		return &ResolveOutput{Kind: entity.KindRedirect, Location: in.Path + "/"}, nil
	}

	for _, name := range s.opts.Index {
		idxKey := path.Join(key, name)
		idx, err := s.storage.StatObject(ctx, idxKey)
		if err == nil && !idx.IsDir {
			return s.file(ctx, idxKey, idx, in)
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to stat index", "key", idxKey, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	if !s.opts.Listing {
		return nil, goerror.NewBusiness("Forbidden", goerror.CodeForbidden)
	}

	return s.listing(ctx, key)
}

func (s *Usecase) listing(ctx context.Context, key string) (*ResolveOutput, error) {
	objects, err := s.storage.ListObjects(ctx, key, storage.ListOptions{})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEmptyDirectory
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to list objects", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.opts.ShowHidden {
		objects = lo.Reject(objects, func(o storage.ObjectInfo, _ int) bool {
			return strings.HasPrefix(o.Name(), ".")
		})
	}

	entries := lo.Map(objects, func(o storage.ObjectInfo, _ int) entity.Entry {
		href := "/" + o.Key
		if o.IsDir {
			href += "/"
		}
		return entity.Entry{
			Name:      o.Name(),
			Href:      href,
			IsDir:     o.IsDir,
			Size:      o.Size,
			UpdatedAt: o.UpdatedAt,
		}
	})
	slices.SortStableFunc(entries, func(a, b entity.Entry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	dir := "/" + key
	if key != "" {
		dir += "/"
	}

	return &ResolveOutput{Kind: entity.KindListing, Dir: dir, Entries: entries}, nil
}

func (s *Usecase) file(ctx context.Context, key string, info storage.ObjectInfo, in ResolveInput) (*ResolveOutput, error) {
	out := &ResolveOutput{
		Kind:        entity.KindFile,
		Info:        info,
		Size:        info.Size,
		ETag:        etagOf(info),
		ContentType: contentTypeOf(key, info),
	}

	servedKey := key
	if s.opts.LookupCompressed {
		for _, enc := range encodings {
			if !acceptsEncoding(in.AcceptEncoding, enc.token) {
				continue
			}
			variant, err := s.storage.StatObject(ctx, key+enc.ext)
			if err != nil || variant.IsDir {
				continue
			}
			servedKey = key + enc.ext
			out.Encoding = enc.token
			out.Size = variant.Size
			out.ETag = etagOf(variant)
			break
		}
	}

	if in.HeadOnly {
		return out, nil
	}

	body, _, err := s.storage.GetObject(ctx, servedKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, goerror.NewBusiness("Not Found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get object", "key", servedKey, "error", err)
		return nil, goerror.NewServer(err)
	}

	if out.ContentType == "" && out.Encoding == "" {
		br := bufio.NewReaderSize(body, sniffLen)
		head, _ := br.Peek(sniffLen)
		out.ContentType = mimetype.Detect(head).String()
		body = readCloser{Reader: br, Closer: body}
	}
	if out.ContentType == "" {
		out.ContentType = "application/octet-stream"
	}

	out.Body = body
	return out, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func isHidden(key string) bool {
	return lo.SomeBy(strings.Split(key, "/"), func(seg string) bool {
		return strings.HasPrefix(seg, ".")
	})
}

func contentTypeOf(key string, info storage.ObjectInfo) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	if info.ContentType != "" && info.ContentType != "application/octet-stream" {
		return info.ContentType
	}
	return ""
}

// etagOf prefers the backend ETag and falls back to size and mtime.
func etagOf(info storage.ObjectInfo) string {
	if info.ETag != "" {
		if strings.HasPrefix(info.ETag, `"`) || strings.HasPrefix(info.ETag, `W/"`) {
			return info.ETag
		}
		return `"` + info.ETag + `"`
	}
	return `"` + strconv.FormatInt(info.UpdatedAt.UnixMilli(), 16) + "-" + strconv.FormatInt(info.Size, 16) + `"`
}

func acceptsEncoding(header, token string) bool {
	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), token) {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}
