// Package http fetches images with plain HTTP GET requests.
package http //nolint:revive // intentional naming for domain clarity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	nethttp "net/http"
	"time"

	"github.com/meigma/imgcache/internal/codec"
)

var (
	// ErrDownload is returned when the request fails or the server does not
	// answer 200 OK.
	ErrDownload = errors.New("http: download failed")

	// ErrNoContent is returned when the response body is empty.
	ErrNoContent = errors.New("http: empty response body")
)

// Fetcher downloads and decodes images.
type Fetcher struct {
	client   *nethttp.Client
	headers  nethttp.Header
	timeout  time.Duration
	maxBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(f *Fetcher) {
		if headers == nil {
			return
		}
		f.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(f *Fetcher) {
		if f.headers == nil {
			f.headers = make(nethttp.Header)
		}
		f.headers.Set(key, value)
	}
}

// WithTimeout bounds each fetch, including reading the body.
// Zero means no timeout: a server that never answers stalls the caller
// until its context is cancelled.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBytes caps how many body bytes are read. Zero means no cap.
// Bodies cut off by the cap usually fail to decode.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// NewFetcher creates a Fetcher. By default it uses http.DefaultClient,
// which follows redirects, with no timeout.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: nethttp.DefaultClient}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = nethttp.DefaultClient
	}
	return f
}

// Fetch downloads url and decodes the body as an image.
//
// Errors wrap ErrDownload for transport failures and non-200 responses,
// ErrNoContent for empty bodies, and codec.ErrDecode for bytes that are not
// a supported image.
func (f *Fetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	for key, values := range f.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(req) //nolint:gosec // fetching caller-supplied URLs is the purpose
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrDownload, resp.Status)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(body, f.maxBytes)
	}
	br := bufio.NewReader(body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoContent
		}
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	img, _, err := codec.Decode(br)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrDownload, ctxErr)
		}
		return nil, err
	}
	return img, nil
}
