// Package media classifies and acquires media inputs for request assembly.
package media

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/calrock27/genflow/pkg/models"
)

// InputKind is the classified shape of a media input value.
type InputKind string

const (
	KindBytes   InputKind = "bytes"
	KindDataURL InputKind = "data-url"
	KindURL     InputKind = "url"
	KindBase64  InputKind = "base64"
	KindPath    InputKind = "path"
)

// Options configures acquisition. DefaultMime is the capability-specific
// fallback used for raw bytes, raw base64, and unrecognized extensions.
type Options struct {
	DefaultMime string
	HTTPClient  *http.Client
	ReadFile    func(name string) ([]byte, error)
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}

	return &http.Client{Timeout: 60 * time.Second}
}

func (o Options) readFile(name string) ([]byte, error) {
	if o.ReadFile != nil {
		return o.ReadFile(name)
	}

	return os.ReadFile(name)
}

// Classify decides how a resolved media value should be acquired.
// Unrecognized shapes are rejected rather than guessed at.
func Classify(v any) (InputKind, error) {
	switch t := v.(type) {
	case []byte:
		return KindBytes, nil
	case string:
		s := strings.TrimSpace(t)

		switch {
		case s == "":
			return "", models.NewFlowError(models.ErrKindMedia, "empty_media", "media input is empty")
		case strings.HasPrefix(s, "data:"):
			return KindDataURL, nil
		case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
			return KindURL, nil
		case isBase64(s):
			return KindBase64, nil
		default:
			return KindPath, nil
		}
	default:
		return "", models.NewFlowError(models.ErrKindMedia, "bad_media_shape",
			"unsupported media input type %T", v)
	}
}

// Acquire turns one resolved media value into an inline content part.
func Acquire(ctx context.Context, v any, opts Options) (models.ContentPart, error) {
	kind, err := Classify(v)
	if err != nil {
		return models.ContentPart{}, err
	}

	switch kind {
	case KindBytes:
		return models.MediaPart(v.([]byte), opts.DefaultMime), nil
	case KindDataURL:
		return parseDataURL(strings.TrimSpace(v.(string)))
	case KindURL:
		return fetchURL(ctx, strings.TrimSpace(v.(string)), opts)
	case KindBase64:
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v.(string)))
		if err != nil {
			return models.ContentPart{}, models.WrapFlowError(models.ErrKindMedia, "bad_base64", err,
				"failed to decode base64 media")
		}

		return models.MediaPart(data, opts.DefaultMime), nil
	case KindPath:
		return readPath(strings.TrimSpace(v.(string)), opts)
	default:
		return models.ContentPart{}, models.NewFlowError(models.ErrKindMedia, "bad_media_shape",
			"unsupported media input kind %q", kind)
	}
}

// AcquireAll acquires every declared media input. Acquisitions run
// concurrently with no completion-order guarantee, but the returned
// parts are in the original declared order. The first failure wins.
func AcquireAll(ctx context.Context, values []any, opts Options) ([]models.ContentPart, error) {
	parts := make([]models.ContentPart, len(values))
	errs := make([]error, len(values))

	var wg sync.WaitGroup

	for i, v := range values {
		wg.Add(1)

		go func(i int, v any) {
			defer wg.Done()

			parts[i], errs[i] = Acquire(ctx, v, opts)
		}(i, v)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return parts, nil
}

func parseDataURL(s string) (models.ContentPart, error) {
	rest := strings.TrimPrefix(s, "data:")

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return models.ContentPart{}, models.NewFlowError(models.ErrKindMedia, "bad_data_url",
			"data URL is missing the base64 marker")
	}

	mime := strings.TrimSuffix(meta, ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.ContentPart{}, models.WrapFlowError(models.ErrKindMedia, "bad_data_url", err,
			"failed to decode data URL payload")
	}

	return models.MediaPart(data, mime), nil
}

func fetchURL(ctx context.Context, url string, opts Options) (models.ContentPart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ContentPart{}, models.WrapFlowError(models.ErrKindMedia, "bad_url", err,
			"failed to build fetch request for %q", url)
	}

	resp, err := opts.httpClient().Do(req)
	if err != nil {
		return models.ContentPart{}, models.WrapFlowError(models.ErrKindMedia, "fetch_failed", err,
			"failed to fetch %q", url)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.ContentPart{}, models.NewFlowError(models.ErrKindMedia, "fetch_failed",
			"fetch of %q returned HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ContentPart{}, models.WrapFlowError(models.ErrKindMedia, "fetch_failed", err,
			"failed to read body of %q", url)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	if mime == "" || mime == "application/octet-stream" {
		mime = MimeForName(url, opts.DefaultMime)
	}

	return models.MediaPart(data, mime), nil
}

func readPath(name string, opts Options) (models.ContentPart, error) {
	data, err := opts.readFile(name)
	if err != nil {
		return models.ContentPart{}, models.WrapFlowError(models.ErrKindMedia, "read_failed", err,
			"failed to read media file %q", name)
	}

	return models.MediaPart(data, MimeForName(name, opts.DefaultMime)), nil
}

// extensionMimes maps file extensions to MIME types for the media kinds
// the remote service accepts inline.
var extensionMimes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
	".bmp":  "image/bmp",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aiff": "audio/aiff",
	".aif":  "audio/aiff",
	".m4a":  "audio/mp4",
	".opus": "audio/opus",
}

// MimeForName looks up the MIME type for a file name or URL by its
// extension, falling back to the given default when unrecognized.
func MimeForName(name, fallback string) string {
	ext := strings.ToLower(path.Ext(stripQuery(name)))
	if mime, ok := extensionMimes[ext]; ok {
		return mime
	}

	return fallback
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}

	return name
}

// isBase64 reports whether s is plausibly a raw base64 payload: non-path
// characters only, padded length, and a successful strict decode.
func isBase64(s string) bool {
	if len(s) < 16 || len(s)%4 != 0 {
		return false
	}

	if strings.ContainsAny(s, "./\\ \t\n") {
		return false
	}

	_, err := base64.StdEncoding.DecodeString(s)

	return err == nil
}
