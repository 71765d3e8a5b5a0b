// Package imgcache loads images from URLs into display targets through a
// memory table, an on-disk mirror and a single background fetch worker.
//
// # Quick Start
//
// Create a loader and request images for display targets:
//
//	l, err := imgcache.New(imgcache.WithMirrorDir("/var/cache/images"))
//	if err != nil {
//	    return err
//	}
//	defer l.Close()
//
//	l.Request("https://example.com/a.png", target, spinner)
//
// A URL already in the memory table is shown before Request returns.
// Otherwise the target is hidden, the spinner is shown, and the worker
// resolves the URL: mirror file first, then an HTTP GET. The decoded image
// is mirrored as PNG, stored in the memory table and delivered through the
// loader's [display.Poster] if the target still waits for that URL.
//
// # Delivery
//
// Targets often belong to a single goroutine, like a UI thread. Use
// [display.Loop] or a custom [display.Poster] to run delivery there:
//
//	loop := display.NewLoop(64)
//	l, err := imgcache.New(imgcache.WithPoster(loop))
//	loop.Post(func() { l.Request(url, target, spinner) })
//	return loop.Run(ctx)
//
// # Failures
//
// Requests never return errors. A URL that fails to download or decode
// leaves its target hidden with the indicator visible, and by default is
// remembered as failed for the lifetime of the memory table. Use
// [WithCacheFailures] to change that, and [WithResultHook] or [Loader.Load]
// to observe the typed [Result].
//
// # Ordering
//
// Pending requests are served most-recent-first, so rows that just
// scrolled into view load before rows that scrolled away. At most one
// request per target is queued at a time. See [WithQueuePolicy].
package imgcache
