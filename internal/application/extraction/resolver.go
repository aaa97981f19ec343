package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
	"github.com/bryanwahyu/mediaexplain/internal/platform/netguard"
)

const defaultDisplayName = "downloaded-file"

type ResolverOptions struct {
	// Stage routes every URL download through the object store before
	// extraction.
	Stage    bool
	MaxBytes int64
	Timeout  time.Duration
	// Client defaults to a netguard client that refuses internal
	// destinations, including redirect targets.
	Client *http.Client
}

// Resolver turns an Input into a local file path registered in the request scope.
type Resolver struct {
	store media.ObjectStore
	opts  ResolverOptions
	now   func() time.Time
	log   *logger.Logger
}

// NewResolver builds a resolver. store may be nil when no object storage
// is configured.
func NewResolver(store media.ObjectStore, opts ResolverOptions, log *logger.Logger) *Resolver {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 500 << 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Client == nil {
		opts.Client = netguard.Guard{}.Client()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{store: store, opts: opts, now: time.Now, log: log.With("service", "InputResolver")}
}

func (r *Resolver) Resolve(ctx context.Context, in Input, req *Request) (string, error) {
	switch in.Kind {
	case InputUpload:
		return r.resolveUpload(in, req)
	case InputURL:
		return r.resolveURL(ctx, in, req)
	}
	return "", media.E(media.KindInvalidInput, "resolve input", errors.New("no file or url provided"))
}

func (r *Resolver) resolveUpload(in Input, req *Request) (string, error) {
	if in.Path == "" {
		return "", media.E(media.KindInvalidInput, "resolve upload", errors.New("empty upload path"))
	}
	req.Scope.TrackFile(in.Path)
	req.OriginalName = in.OriginalName
	if req.OriginalName == "" {
		req.OriginalName = filepath.Base(in.Path)
	}
	return in.Path, nil
}

func (r *Resolver) resolveURL(ctx context.Context, in Input, req *Request) (string, error) {
	u, err := parseURL(in.URL)
	if err != nil {
		return "", media.E(media.KindInvalidInput, "parse url", err)
	}
	// fail before touching the network
	if r.opts.Stage && r.store == nil {
		return "", media.E(media.KindStorageNotConfigured, "stage url input",
			errors.New("object storage is not configured; URL inputs require a storage driver"))
	}
	req.OriginalName = DisplayName(u)

	local, ext, err := r.download(ctx, u, req)
	if err != nil {
		return "", err
	}
	if !r.opts.Stage {
		return local, nil
	}
	return r.stage(ctx, local, ext, req)
}

func parseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("url has no host")
	}
	return u, nil
}

// DisplayName is the last path segment of u, or a fixed fallback.
func DisplayName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return defaultDisplayName
	}
	return base
}

// download streams the URL into the request work dir. The returned
// extension is the one the temp file was given.
func (r *Resolver) download(ctx context.Context, u *url.URL, req *Request) (string, string, error) {
	const op = "download file"
	dlCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(dlCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", media.E(media.KindInvalidInput, op, err)
	}
	resp, err := r.opts.Client.Do(httpReq)
	if errors.Is(err, netguard.ErrBlocked) {
		return "", "", media.E(media.KindInvalidInput, op, err)
	}
	if err != nil {
		return "", "", media.E(media.KindDownloadFailed, op, downloadCause(dlCtx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", media.E(media.KindDownloadFailed, op, fmt.Errorf("unexpected status %s", resp.Status))
	}
	if resp.ContentLength > r.opts.MaxBytes {
		return "", "", media.E(media.KindDownloadFailed, op,
			fmt.Errorf("%w: %d bytes (limit %d)", media.ErrDownloadTooLarge, resp.ContentLength, r.opts.MaxBytes))
	}

	ext := pickExtension(u.Path, resp.Header.Get("Content-Type"))
	local := filepath.Join(req.WorkDir, "download-"+uuid.NewString()+ext)
	req.Scope.TrackFile(local)

	n, err := writeFile(local, io.LimitReader(resp.Body, r.opts.MaxBytes+1))
	if err != nil {
		return "", "", media.E(media.KindDownloadFailed, op, downloadCause(dlCtx, err))
	}
	if n > r.opts.MaxBytes {
		return "", "", media.E(media.KindDownloadFailed, op,
			fmt.Errorf("%w: limit %d bytes", media.ErrDownloadTooLarge, r.opts.MaxBytes))
	}
	r.log.Debug("url downloaded", "request_id", req.ID, "bytes", n, "ext", ext)
	return local, ext, nil
}

// stage uploads the download under a unique key and fetches it back; the
// re-fetched copy is what gets extracted.
func (r *Resolver) stage(ctx context.Context, local, ext string, req *Request) (string, error) {
	key := fmt.Sprintf("%d-%s%s", r.now().UnixMilli(), uuid.NewString(), ext)
	req.Scope.TrackObject(key, r.store.Delete)

	obj, err := r.store.Upload(ctx, local, key)
	if err != nil {
		return "", media.E(media.KindStorageOperationFailed, "stage upload", err)
	}
	req.StagedKey = obj.Key

	rc, err := r.store.Download(ctx, obj.Key)
	if err != nil {
		return "", media.E(media.KindStorageOperationFailed, "stage fetch", err)
	}
	defer rc.Close()

	staged := filepath.Join(req.WorkDir, "staged-"+uuid.NewString()+ext)
	req.Scope.TrackFile(staged)
	if _, err := writeFile(staged, rc); err != nil {
		return "", media.E(media.KindStorageOperationFailed, "stage fetch", err)
	}
	r.log.Debug("url staged", "request_id", req.ID, "key", obj.Key, "url", obj.URL)
	return staged, nil
}

func writeFile(path string, src io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func downloadCause(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", media.ErrDownloadTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", media.ErrDownloadTimeout, err)
	}
	return err
}

// pickExtension prefers a supported extension from the URL path, then the
// response Content-Type, then any extension the path had, then ".bin".
func pickExtension(urlPath, contentType string) string {
	ext := strings.ToLower(path.Ext(urlPath))
	if ext != "" && media.Classify(ext) != media.TypeUnknown {
		return ext
	}
	if ct := media.ExtensionForContentType(contentType); ct != ".bin" {
		return ct
	}
	if ext != "" {
		return ext
	}
	return ".bin"
}
