package imgcache

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/meigma/imgcache/cache"
	"github.com/meigma/imgcache/cache/disk"
	"github.com/meigma/imgcache/display"
	imghttp "github.com/meigma/imgcache/http"
	"github.com/meigma/imgcache/internal/queue"
)

// Option configures a Loader.
type Option func(*Loader) error

// DefaultFetchTimeout bounds each download unless WithFetchTimeout says
// otherwise. A hung connection would otherwise stall every queued request.
const DefaultFetchTimeout = 30 * time.Second

// QueuePolicy selects the order in which pending requests are served.
type QueuePolicy = queue.Policy

// Queue policies.
const (
	// QueueLIFO serves the most recent request first. This is the default.
	QueueLIFO = queue.LIFO
	// QueueFIFO serves the oldest request first.
	QueueFIFO = queue.FIFO
)

// ParseQueuePolicy converts "lifo" or "fifo" into a QueuePolicy.
func ParseQueuePolicy(s string) (QueuePolicy, error) {
	return queue.ParsePolicy(s)
}

// --- Memory table options ---

// WithMemory sets the memory table. It overrides WithMemoryCapacity.
func WithMemory(table cache.Table) Option {
	return func(l *Loader) error {
		if table == nil {
			return errors.New("imgcache: memory table is nil")
		}
		l.memory = table
		return nil
	}
}

// WithMemoryCapacity bounds the memory table to n entries with least
// recently used eviction. Zero keeps the default unbounded table.
func WithMemoryCapacity(n int) Option {
	return func(l *Loader) error {
		if n < 0 {
			return errors.New("imgcache: memory capacity must be >= 0")
		}
		l.memoryCapacity = n
		return nil
	}
}

// WithCacheFailures controls whether URLs that produced no image are kept
// in the memory table. Enabled by default: a failed URL is not fetched
// again for the lifetime of the table.
func WithCacheFailures(enabled bool) Option {
	return func(l *Loader) error {
		l.cacheFailures = enabled
		return nil
	}
}

// --- Mirror options ---

// WithMirror sets the on-disk mirror.
func WithMirror(m *disk.Mirror) Option {
	return func(l *Loader) error {
		if m == nil {
			return errors.New("imgcache: mirror is nil")
		}
		l.mirror = m
		return nil
	}
}

// WithMirrorDir opens the mirror at dir instead of DefaultMirrorDir.
func WithMirrorDir(dir string, opts ...disk.Option) Option {
	return func(l *Loader) error {
		if dir == "" {
			return errors.New("imgcache: mirror dir is empty")
		}
		l.mirrorDir = dir
		l.mirrorOpts = append(l.mirrorOpts, opts...)
		return nil
	}
}

// WithoutMirror disables the on-disk mirror.
func WithoutMirror() Option {
	return func(l *Loader) error {
		l.noMirror = true
		return nil
	}
}

// --- Fetch options ---

// WithFetcher replaces the HTTP fetcher. Fetch options are then ignored.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) error {
		if f == nil {
			return errors.New("imgcache: fetcher is nil")
		}
		l.fetcher = f
		return nil
	}
}

// WithHTTPClient sets the HTTP client used by the default fetcher.
func WithHTTPClient(client *nethttp.Client) Option {
	return func(l *Loader) error {
		l.fetchOpts = append(l.fetchOpts, imghttp.WithClient(client))
		return nil
	}
}

// WithFetchTimeout bounds each download. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loader) error {
		if d < 0 {
			return errors.New("imgcache: fetch timeout must be >= 0")
		}
		l.fetchTimeout = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent by the default fetcher.
func WithUserAgent(ua string) Option {
	return func(l *Loader) error {
		l.fetchOpts = append(l.fetchOpts, imghttp.WithHeader("User-Agent", ua))
		return nil
	}
}

// --- Worker and delivery options ---

// WithQueuePolicy sets the order in which pending requests are served.
func WithQueuePolicy(p QueuePolicy) Option {
	return func(l *Loader) error {
		l.policy = p
		return nil
	}
}

// WithPoster sets where results are delivered. Defaults to
// display.Immediate, which delivers on the worker goroutine.
func WithPoster(p display.Poster) Option {
	return func(l *Loader) error {
		if p == nil {
			return errors.New("imgcache: poster is nil")
		}
		l.poster = p
		return nil
	}
}

// WithResultHook registers fn to observe every result the worker resolves,
// including results that are not delivered because the target moved on.
// fn runs on the worker goroutine.
func WithResultHook(fn func(Result)) Option {
	return func(l *Loader) error {
		l.onResult = fn
		return nil
	}
}

// WithContext sets the parent context of the worker. Cancelling it has
// the same effect as Close.
func WithContext(ctx context.Context) Option {
	return func(l *Loader) error {
		if ctx == nil {
			return errors.New("imgcache: context is nil")
		}
		l.ctx = ctx
		return nil
	}
}

// WithLogger sets the logger for diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}
