// Package fetch holds the HTTP client shared by every remote lookup, and
// the image download step that turns a resolved URL into a local file.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/metrics"
	"github.com/ryanm101/romart/internal/tracing"
)

// Download kinds used as metric labels.
const (
	KindImage = "image"
	KindIndex = "index"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Client wraps an instrumented *http.Client.
type Client struct {
	http *http.Client
	dir  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Zero keeps transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithDownloadDir sets where downloaded images are written. Empty means
// the OS temp directory.
func WithDownloadDir(dir string) Option {
	return func(c *Client) { c.dir = dir }
}

// WithHTTPClient replaces the underlying client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewTransport returns the traced, gzip-aware round tripper.
func NewTransport() http.RoundTripper {
	return otelhttp.NewTransport(gzhttp.Transport(http.DefaultTransport))
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{http: &http.Client{Transport: NewTransport()}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTP exposes the underlying client for packages that build requests.
func (c *Client) HTTP() *http.Client {
	return c.http
}

// Open issues a GET and returns the body with its advertised length (-1
// when unknown). Non-2xx responses are returned as *StatusError.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, 0, &StatusError{URL: rawURL, Status: resp.Status, Code: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

// Download fetches rawURL into a fresh temporary file and returns its path.
// The file keeps the URL's extension. Partial files are removed on error.
func (c *Client) Download(ctx context.Context, rawURL string) (localPath string, err error) {
	ctx, span := tracing.StartSpan(ctx, "fetch.Download",
		tracing.WithAttributes(attribute.String("url", rawURL)))
	defer func() {
		tracing.RecordError(span, err)
		metrics.RecordDownload(KindImage, err)
		span.End()
	}()

	body, _, err := c.Open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	f, err := os.CreateTemp(c.dir, "romart-*"+extension(rawURL))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(f.Name())
		if copyErr != nil {
			return "", fmt.Errorf("write %s: %w", f.Name(), copyErr)
		}
		return "", fmt.Errorf("close %s: %w", f.Name(), closeErr)
	}

	logging.Debug("image downloaded", "url", rawURL, "path", f.Name(), "bytes", n)
	return f.Name(), nil
}

// extension returns the URL path's file extension, or "" when it has none
// or it would be unsafe in a file name pattern.
func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	if len(ext) < 2 || len(ext) > 6 || strings.ContainsAny(ext, `*/\`) {
		return ""
	}
	return strings.ToLower(ext)
}
