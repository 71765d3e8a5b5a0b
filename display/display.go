// Package display defines the UI boundary the loader delivers images to.
//
// A [Target] shows an image, an [Indicator] shows progress, and a [Poster]
// runs delivery on whatever goroutine owns the targets.
package display

import "image"

// Target is an element that shows a fetched image.
//
// The pending tag records which URL the target is waiting for. Tag is read
// from the fetch worker goroutine, so implementations must make SetTag and
// Tag safe for concurrent use. The other methods are only called from the
// goroutine the loader's Poster delivers on.
type Target interface {
	SetImage(img image.Image)
	SetVisible(visible bool)
	SetTag(url string)
	Tag() string
}

// Indicator is a progress element shown while an image is loading.
type Indicator interface {
	SetVisible(visible bool)
}

// Apply shows img on target and hides indicator. A nil img hides the
// target and leaves the indicator visible, which is the failed state.
func Apply(img image.Image, target Target, indicator Indicator) {
	if img != nil {
		target.SetImage(img)
		if indicator != nil {
			indicator.SetVisible(false)
		}
		target.SetVisible(true)
		return
	}
	target.SetVisible(false)
	if indicator != nil {
		indicator.SetVisible(true)
	}
}

// ShowPending puts target and indicator into the loading state.
func ShowPending(target Target, indicator Indicator) {
	target.SetVisible(false)
	if indicator != nil {
		indicator.SetVisible(true)
	}
}
