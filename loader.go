package imgcache

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/imgcache/cache"
	"github.com/meigma/imgcache/cache/disk"
	"github.com/meigma/imgcache/display"
	imghttp "github.com/meigma/imgcache/http"
	"github.com/meigma/imgcache/internal/queue"
	"github.com/meigma/imgcache/internal/worker"
)

// Fetcher downloads and decodes the image at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// WorkerState is a point in the fetch worker lifecycle.
type WorkerState = worker.State

// Worker states.
const (
	StateNew      = worker.StateNew
	StateIdle     = worker.StateIdle
	StateDraining = worker.StateDraining
	StateStopped  = worker.StateStopped
)

// pending is a request waiting for the worker.
type pending struct {
	url       string
	target    display.Target
	indicator display.Indicator
}

// Loader resolves image URLs for display targets.
//
// Request is called from the goroutine that owns the targets. Misses are
// resolved by one background worker: mirror file first, then the network.
// Results land in the memory table and are posted back to the target if it
// still waits for the same URL.
//
// A Loader is safe for concurrent use.
type Loader struct {
	memory        cache.Table
	mirror        *disk.Mirror // nil when disabled
	fetcher       Fetcher
	poster        display.Poster
	policy        queue.Policy
	cacheFailures bool
	onResult      func(Result)
	ctx           context.Context
	logger        *slog.Logger

	// life bounds shared resolutions. It is cancelled by Close and by the
	// parent context, never by a single caller.
	life context.Context
	stop context.CancelFunc

	// construction inputs
	memoryCapacity int
	mirrorDir      string
	mirrorOpts     []disk.Option
	noMirror       bool
	fetchOpts      []imghttp.Option
	fetchTimeout   time.Duration

	worker     *worker.Worker[pending]
	fetchGroup singleflight.Group // deduplicates concurrent resolutions of one URL
	closed     atomic.Bool
}

// New creates a Loader. Without options it keeps an unbounded memory
// table, mirrors images under DefaultMirrorDir, and serves requests
// most-recent-first.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		poster:        display.Immediate{},
		policy:        queue.LIFO,
		cacheFailures: true,
		ctx:           context.Background(),
		fetchTimeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}

	if l.memory == nil {
		if l.memoryCapacity > 0 {
			table, err := cache.NewLRU(l.memoryCapacity)
			if err != nil {
				return nil, err
			}
			l.memory = table
		} else {
			l.memory = cache.NewMemory()
		}
	}

	if l.noMirror {
		l.mirror = nil
	} else if l.mirror == nil {
		dir := l.mirrorDir
		if dir == "" {
			dir = DefaultMirrorDir()
		}
		m, err := disk.New(dir, l.mirrorOpts...)
		if err != nil {
			return nil, fmt.Errorf("imgcache: open mirror: %w", err)
		}
		l.mirror = m
	}

	if l.fetcher == nil {
		fetchOpts := append([]imghttp.Option{imghttp.WithTimeout(l.fetchTimeout)}, l.fetchOpts...)
		l.fetcher = imghttp.NewFetcher(fetchOpts...)
	}

	l.life, l.stop = context.WithCancel(l.ctx)
	l.worker = worker.New(queue.New[pending](l.policy), l.handle,
		worker.WithLogger[pending](l.logger),
		worker.WithContext[pending](l.life),
	)
	return l, nil
}

// Request shows the image for url on target.
//
// A memory hit is applied before Request returns. Otherwise target is
// hidden, indicator is shown, and the request is queued for the worker,
// replacing any request still queued for the same target. Request never
// blocks on I/O and never fails: a URL that cannot be loaded leaves target
// hidden and indicator visible.
//
// Targets are compared with ==, so they must be comparable values,
// typically pointers. indicator may be nil.
func (l *Loader) Request(url string, target display.Target, indicator display.Indicator) {
	target.SetTag(url)

	if img, ok := l.memory.Get(url); ok {
		// A queued request for an older URL must not overwrite this one.
		l.worker.Remove(boundTo(target))
		display.Apply(img, target, indicator)
		return
	}

	display.ShowPending(target, indicator)
	removed, err := l.worker.Replace(pending{url: url, target: target, indicator: indicator}, boundTo(target))
	if err != nil {
		l.logger.Debug("request dropped", slog.String("url", url), slog.Any("error", err))
		return
	}
	if removed > 0 {
		l.logger.Debug("superseded queued requests", slog.String("url", url), slog.Int("count", removed))
	}
}

// Load resolves url synchronously: memory table, then mirror, then network.
// The result is stored like a worker result. Concurrent loads of one URL,
// including the worker's, share a single resolution.
//
// Cancelling ctx abandons the wait but not the shared resolution, which
// still completes for other callers and the memory table. The result then
// carries ctx.Err() and SourceNone.
func (l *Loader) Load(ctx context.Context, url string) Result {
	if l.closed.Load() {
		return Result{URL: url, Source: SourceNone, Err: ErrClosed}
	}
	return l.resolve(ctx, url)
}

// Cached returns the memory table entry for url.
// ok is true for URLs that are cached as failed, with a nil image.
func (l *Loader) Cached(url string) (img image.Image, ok bool) {
	return l.memory.Get(url)
}

// Forget removes url from the memory table and the mirror, so the next
// request fetches it again.
func (l *Loader) Forget(url string) error {
	l.memory.Delete(url)
	if l.mirror == nil {
		return nil
	}
	return l.mirror.Delete(url)
}

// Mirror returns the on-disk mirror, or nil when disabled.
func (l *Loader) Mirror() *disk.Mirror {
	return l.mirror
}

// State returns the worker state.
func (l *Loader) State() WorkerState {
	return l.worker.State()
}

// Pending returns the number of queued and in-flight requests.
func (l *Loader) Pending() int {
	return l.worker.Outstanding()
}

// Drain blocks until every queued request has been resolved and handed to
// the Poster, the loader is closed, or ctx is done.
func (l *Loader) Drain(ctx context.Context) error {
	return l.worker.Drain(ctx)
}

// Close stops the worker and waits for it to exit. A download in flight is
// cancelled. Requests still queued are dropped. A closed Loader still
// serves memory hits but never starts another worker.
func (l *Loader) Close() error {
	l.closed.Store(true)
	l.stop()
	return l.worker.Stop()
}

func (l *Loader) handle(ctx context.Context, p pending) {
	res := l.resolve(ctx, p.url)
	if ctx.Err() != nil {
		return
	}
	if l.onResult != nil {
		l.onResult(res)
	}

	if p.target.Tag() != p.url {
		l.logger.Debug("discarding stale result", slog.String("url", p.url))
		return
	}
	l.poster.Post(func() {
		// The target may have been reassigned while this was queued.
		if p.target.Tag() != p.url {
			return
		}
		display.Apply(res.Image, p.target, p.indicator)
	})
}

// resolve waits for the shared resolution of url or for ctx, whichever
// comes first. The resolution itself runs on l.life, so one caller giving
// up never fails the others.
func (l *Loader) resolve(ctx context.Context, url string) Result {
	if img, ok := l.memory.Get(url); ok {
		return Result{URL: url, Image: img, Source: SourceMemory}
	}
	ch := l.fetchGroup.DoChan(url, func() (any, error) {
		if img, ok := l.memory.Get(url); ok {
			return Result{URL: url, Image: img, Source: SourceMemory}, nil
		}
		res := l.fetch(l.life, url)
		l.remember(l.life, res)
		return res, nil
	})

	select {
	case r := <-ch:
		res, _ := r.Val.(Result)
		if res.Err != nil && l.life.Err() != nil {
			res.Err = fmt.Errorf("%w: %w", ErrClosed, res.Err)
		}
		return res
	case <-ctx.Done():
		return Result{URL: url, Source: SourceNone, Err: ctx.Err()}
	}
}

func (l *Loader) fetch(ctx context.Context, url string) Result {
	if l.mirror != nil {
		if img, ok := l.mirror.Get(url); ok {
			return Result{URL: url, Image: img, Source: SourceMirror}
		}
	}

	res := Result{URL: url, Source: SourceNetwork}
	img, err := l.fetcher.Fetch(ctx, url)
	if err == nil && img == nil {
		err = ErrNoContent
	}
	if err != nil {
		l.logger.Debug("fetch failed", slog.String("url", url), slog.Any("error", err))
		res.Err = err
		return res
	}
	res.Image = img

	if l.mirror != nil {
		if err := l.mirror.Put(url, img); err != nil {
			l.logger.Debug("mirror write failed", slog.String("url", url), slog.Any("error", err))
			res.PersistErr = err
		}
	}
	return res
}

// remember stores res in the memory table. Failed results are stored as
// nil images unless disabled; results cut short by shutdown never are.
func (l *Loader) remember(ctx context.Context, res Result) {
	if res.Image == nil && (!l.cacheFailures || ctx.Err() != nil) {
		return
	}
	l.memory.Put(res.URL, res.Image)
}

func boundTo(target display.Target) func(pending) bool {
	return func(p pending) bool {
		return p.target == target
	}
}
