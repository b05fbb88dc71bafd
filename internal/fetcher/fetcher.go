package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultMaxRedirects is the redirect limit used when none is configured.
	DefaultMaxRedirects = 10

	// DefaultMaxBodySize caps the bytes read from a response, before and
	// after decompression.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultTimeout bounds a whole fetch including redirects.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler.
	DefaultUserAgent = "ruthless"
)

// Result is a successfully fetched HTML document.
type Result struct {
	// URL is the final URL after redirects.
	URL string

	// HTML is the decoded UTF-8 document.
	HTML string

	// ContentType is the Content-Type header of the final response.
	ContentType string

	// StatusCode of the final response. Non-2xx HTML responses are still
	// returned as documents.
	StatusCode int

	// Redirects is the number of redirects followed.
	Redirects int
}

// Fetcher downloads HTML pages. It is safe for concurrent use.
type Fetcher struct {
	// client performs single requests; redirects are never followed by it.
	client *http.Client

	// userAgent is sent with every request, including redirect hops.
	userAgent string

	// maxRedirects is the number of redirects followed before failing.
	maxRedirects int

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// timeout bounds one Fetch call. Zero disables it.
	timeout time.Duration

	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRedirects sets the redirect limit.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		f.maxRedirects = n
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithTransport replaces the HTTP transport, for example with one from
// NewProxyTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.client.Transport = rt
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Transport: newTransport(),
			// Redirects are handled in Fetch so the hop count and the
			// Location resolution are under our control.
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:    DefaultUserAgent,
		maxRedirects: DefaultMaxRedirects,
		maxBodySize:  DefaultMaxBodySize,
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// newTransport returns the default transport. Compression is negotiated by
// Fetch so the transport must not add its own Accept-Encoding.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = true
	return t
}

// Fetch retrieves rawURL and returns its HTML. Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, newFetchError(KindNetwork, rawURL, err)
	}

	for redirects := 0; ; redirects++ {
		resp, err := f.do(ctx, current)
		if err != nil {
			return nil, newFetchError(KindNetwork, current.String(), err)
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return f.readDocument(resp, current.String(), redirects)
		}
		discard(resp)

		if redirects >= f.maxRedirects {
			return nil, newFetchError(KindTooManyRedirects, current.String(),
				fmt.Errorf("stopped after %d redirects", redirects))
		}

		next, err := current.Parse(location)
		if err != nil {
			return nil, newFetchError(KindNetwork, current.String(),
				fmt.Errorf("invalid redirect location %q: %w", location, err))
		}

		f.logger.Debug("following redirect",
			"from", current.String(),
			"to", next.String(),
			"status", resp.StatusCode)
		current = next
	}
}

// do issues a single GET. Every hop carries the same headers.
func (f *Fetcher) do(ctx context.Context, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	return f.client.Do(req)
}

// readDocument validates the content type and decodes the body.
func (f *Fetcher) readDocument(resp *http.Response, finalURL string, redirects int) (*Result, error) {
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, newFetchError(KindNotHTML, finalURL,
			fmt.Errorf("content type %q", contentType))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, newFetchError(KindNetwork, finalURL, fmt.Errorf("failed to read body: %w", err))
	}

	decoded, err := f.decompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, newFetchError(KindNetwork, finalURL, err)
	}

	text, err := toUTF8(decoded, contentType)
	if err != nil {
		return nil, newFetchError(KindNetwork, finalURL, err)
	}

	return &Result{
		URL:         finalURL,
		HTML:        text,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		Redirects:   redirects,
	}, nil
}

// decompress undoes the Content-Encoding of body.
func (f *Fetcher) decompress(encoding string, body []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		// RFC 9110 deflate is zlib framed, but raw DEFLATE streams are common.
		r, err = zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(body)), nil
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream: %w", encoding, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, f.maxBodySize))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to decode %s body: %w", encoding, err)
	}
	if err != nil {
		f.logger.Debug("truncated compressed body", "encoding", encoding)
	}
	return out, nil
}

// toUTF8 converts body from the charset declared in contentType or the
// document itself. NUL bytes are removed because PostgreSQL text columns
// reject them.
func toUTF8(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to convert charset: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to convert charset: %w", err)
	}
	return strings.ReplaceAll(string(out), "\x00", ""), nil
}

// isRedirect reports whether status is one of the redirects we follow.
func isRedirect(status int) bool {
	switch status {
	case http.StatusMultipleChoices,
		http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// isHTML reports whether a Content-Type header denotes text/html.
// A missing header is not HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mediaType == "text/html"
}

// discard drains and closes a body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
