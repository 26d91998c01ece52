package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/models"
	"chatWorker/worker/resilience"
)

const DefaultMaxBytes = 100 << 20

var (
	errTooLarge      = errors.New("attachment exceeds size limit")
	errOutsideRoot   = errors.New("local attachment outside media root")
	errLocalDisabled = errors.New("local attachments are disabled")
)

// Fetcher materialises an attachment ref as a private file inside the
// scratch root. The caller owns the returned file.
type Fetcher struct {
	client      *http.Client
	scratchRoot string
	localRoot   string
	maxBytes    int64
	retry       resilience.RetryConfig
	logger      *zap.Logger
}

// NewFetcher builds a fetcher. Local path refs are only read from inside
// localRoot; an empty localRoot accepts http(s) refs only.
func NewFetcher(scratchRoot, localRoot string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		scratchRoot: scratchRoot,
		localRoot:   localRoot,
		maxBytes:    DefaultMaxBytes,
		retry: resilience.RetryConfig{
			MaxRetries:  2,
			BaseDelay:   time.Second,
			IsRetryable: isRetryableFetch,
		},
		logger: logger,
	}
}

// Fetch copies att into the scratch root. http(s) refs are downloaded, any
// other ref must name a file under the local media root.
//
// A missing, unavailable or oversized attachment is a media error. A failed
// or interrupted transfer is a provider error. Local disk failures are
// segmentation errors.
func (f *Fetcher) Fetch(ctx context.Context, att models.Attachment) (string, error) {
	if strings.TrimSpace(att.Ref) == "" {
		return "", apperrors.Media("media.fetch", "attachment has no ref", nil)
	}

	remote := isRemote(att.Ref)
	var src string
	if !remote {
		var err error
		if src, err = f.localSource(att.Ref); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(f.scratchRoot, 0o700); err != nil {
		return "", apperrors.Segmentation("media.fetch", "create scratch root", err)
	}
	out, err := os.CreateTemp(f.scratchRoot, "media-*"+extensionFor(att))
	if err != nil {
		return "", apperrors.Segmentation("media.fetch", "create target file", err)
	}
	path := out.Name()
	out.Close()

	if remote {
		err = resilience.Retry(ctx, f.retry, f.logger, func() error {
			return f.download(ctx, att.Ref, path)
		})
	} else {
		err = f.copyLocal(src, path)
	}
	if err != nil {
		os.Remove(path)
		return "", fetchError(err, remote)
	}

	f.logger.Debug("Attachment fetched", zap.String("path", path))
	return path, nil
}

// localSource resolves ref to a real path contained in the local media root.
func (f *Fetcher) localSource(ref string) (string, error) {
	if f.localRoot == "" {
		return "", apperrors.Media("media.fetch", "local attachment rejected", errLocalDisabled)
	}

	root, err := filepath.EvalSymlinks(f.localRoot)
	if err != nil {
		return "", apperrors.Segmentation("media.fetch", "resolve media root", err)
	}
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(root, ref)
	}
	src, err := filepath.EvalSymlinks(ref)
	if err != nil {
		return "", apperrors.Media("media.fetch", "attachment not found", err)
	}

	rel, err := filepath.Rel(root, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.Media("media.fetch", "local attachment rejected", errOutsideRoot).
			WithMetadata("ref", ref)
	}
	return src, nil
}

func fetchError(err error, remote bool) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	var se *statusError
	switch {
	case errors.Is(err, errTooLarge):
		return apperrors.Media("media.fetch", "attachment too large", err)
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.Media("media.fetch", "attachment not found", err)
	case errors.As(err, &se) && !se.transient():
		return apperrors.Media("media.fetch", "attachment unavailable", err).
			WithMetadata("status", strconv.Itoa(se.code))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return apperrors.Provider("media.fetch", "fetch interrupted", err)
	case remote:
		return apperrors.Provider("media.fetch", "download attachment", err)
	default:
		return apperrors.Segmentation("media.fetch", "copy local attachment", err)
	}
}

func (f *Fetcher) download(ctx context.Context, ref, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return apperrors.Media("media.fetch", "build request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	if resp.ContentLength > f.maxBytes {
		return errTooLarge
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	return f.copyLimited(out, resp.Body)
}

func (f *Fetcher) copyLocal(src, path string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	return f.copyLimited(out, in)
}

func (f *Fetcher) copyLimited(dst io.Writer, src io.Reader) error {
	n, err := io.Copy(dst, io.LimitReader(src, f.maxBytes+1))
	if err != nil {
		return err
	}
	if n > f.maxBytes {
		return errTooLarge
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// transient reports whether the host may serve the attachment later.
func (e *statusError) transient() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests || e.code == http.StatusRequestTimeout
}

func isRetryableFetch(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.transient()
	}
	if errors.Is(err, errTooLarge) || errors.Is(err, context.Canceled) {
		return false
	}
	var appErr *apperrors.Error
	return !errors.As(err, &appErr)
}

func isRemote(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func extensionFor(att models.Attachment) string {
	if att.MimeType != "" {
		if exts, err := mime.ExtensionsByType(att.MimeType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	ref := att.Ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	if ext := filepath.Ext(ref); ext != "" && len(ext) <= 6 {
		return ext
	}
	return ".bin"
}
