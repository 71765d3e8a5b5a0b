package main

import (
	"fmt"
	"image"
	"sync"
)

// consoleTarget is a display target that records what the loader showed.
// Everything but the tag is touched only by the display loop goroutine.
type consoleTarget struct {
	url       string
	indicator consoleIndicator

	mu  sync.Mutex
	tag string

	img     image.Image
	visible bool
}

func newConsoleTarget(url string) *consoleTarget {
	return &consoleTarget{url: url}
}

func (t *consoleTarget) SetImage(img image.Image) { t.img = img }

func (t *consoleTarget) SetVisible(visible bool) { t.visible = visible }

func (t *consoleTarget) SetTag(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tag = url
}

func (t *consoleTarget) Tag() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tag
}

// status renders one line for the fetch report.
func (t *consoleTarget) status() string {
	switch {
	case t.visible && t.img != nil:
		b := t.img.Bounds()
		return fmt.Sprintf("ok      %dx%d", b.Dx(), b.Dy())
	case t.indicator.visible:
		return "failed"
	default:
		return "pending"
	}
}

func (t *consoleTarget) ok() bool {
	return t.visible && t.img != nil
}

// consoleIndicator stands in for a progress spinner.
type consoleIndicator struct {
	visible bool
}

func (i *consoleIndicator) SetVisible(visible bool) { i.visible = visible }
