package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/meigma/imgcache"
	"github.com/meigma/imgcache/display"
)

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch URL...",
		Short: "Load images the way a list view would",
		Long: `Request every URL through the background worker and report the outcome.

Each URL gets its own display target. Results are delivered on a single
display loop, like rows in a scrolling list. With the default queue policy
the last URL is served first.

Examples:
  imgcache fetch https://example.com/a.png https://example.com/b.png
  imgcache fetch -v https://example.com/a.png   # log cache decisions`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, args)
		},
	}
}

func (a *app) runFetch(cmd *cobra.Command, urls []string) error {
	ctx := cmd.Context()

	var (
		mu      sync.Mutex
		sources = make(map[string]imgcache.Source)
	)
	hook := func(r imgcache.Result) {
		mu.Lock()
		defer mu.Unlock()
		sources[r.URL] = r.Source
		if r.PersistErr != nil {
			a.logger.Warn("image not mirrored", slog.String("url", r.URL), slog.Any("error", r.PersistErr))
		}
	}

	loop := display.NewLoop(len(urls))
	l, err := a.newLoader(imgcache.WithPoster(loop), imgcache.WithResultHook(hook))
	if err != nil {
		return err
	}
	defer l.Close()

	targets := make([]*consoleTarget, len(urls))
	for i, url := range urls {
		t := newConsoleTarget(url)
		targets[i] = t
		l.Request(url, t, &t.indicator)
	}

	drained := make(chan error, 1)
	go func() {
		drained <- l.Drain(ctx)
		loop.Close()
	}()
	if err := loop.Run(ctx); err != nil && !errors.Is(err, display.ErrLoopClosed) {
		return err
	}
	if err := <-drained; err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	failed := 0
	for _, t := range targets {
		source, fetched := sources[t.url]
		// Memory hits are applied inside Request and never reach the hook.
		if !fetched {
			source = imgcache.SourceMemory
		}
		if !t.ok() {
			failed++
		}
		fmt.Fprintf(a.stdout, "%-14s %-8s %s\n", t.status(), source, t.url)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(urls))
	}
	return nil
}
