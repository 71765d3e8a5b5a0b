// Package testutil provides fakes shared by the imgcache tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// Image returns a small opaque test image whose pixels depend on seed.
func Image(seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := range 6 {
		for x := range 8 {
			img.Set(x, y, color.NRGBA{R: seed, G: uint8(x * 30), B: uint8(y * 40), A: 0xff})
		}
	}
	return img
}

// PNG returns Image(seed) encoded as PNG.
func PNG(t testing.TB, seed uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(seed)); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// SameImage reports whether a and b have equal bounds and pixels.
func SameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Bounds() != b.Bounds() {
		return false
	}
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			ar, ag, ab, aa := a.At(x, y).RGBA()
			br, bg, bb, ba := b.At(x, y).RGBA()
			if ar != br || ag != bg || ab != bb || aa != ba {
				return false
			}
		}
	}
	return true
}

// Target records everything the loader does to a display target.
// It is safe for concurrent use.
type Target struct {
	mu      sync.Mutex
	name    string
	tag     string
	img     image.Image
	visible bool
	sets    int
}

// NewTarget returns a visible target with no image.
func NewTarget(name string) *Target {
	return &Target{name: name, visible: true}
}

// SetImage records img.
func (t *Target) SetImage(img image.Image) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.img = img
	t.sets++
}

// SetVisible records visibility.
func (t *Target) SetVisible(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = visible
}

// SetTag records the pending tag.
func (t *Target) SetTag(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tag = url
}

// Tag returns the pending tag.
func (t *Target) Tag() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tag
}

// Image returns the last image set.
func (t *Target) Image() image.Image {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img
}

// Visible reports the last visibility set.
func (t *Target) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// ImageSets returns how many times SetImage was called.
func (t *Target) ImageSets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sets
}

// String returns the target name.
func (t *Target) String() string { return t.name }

// Indicator records progress indicator visibility.
type Indicator struct {
	visible atomic.Bool
}

// NewIndicator returns a hidden indicator.
func NewIndicator() *Indicator {
	return &Indicator{}
}

// SetVisible records visibility.
func (i *Indicator) SetVisible(visible bool) { i.visible.Store(visible) }

// Visible reports the last visibility set.
func (i *Indicator) Visible() bool { return i.visible.Load() }

// ImageServer serves fixed bodies by path and counts requests.
type ImageServer struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string][]byte
	hits   map[string]int
	block  map[string]chan struct{}
}

// NewImageServer starts a server and registers Close with t.Cleanup.
// Unknown paths return 404.
func NewImageServer(t testing.TB) *ImageServer {
	t.Helper()
	s := &ImageServer{
		bodies: make(map[string][]byte),
		hits:   make(map[string]int),
		block:  make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle serves body at path. A nil body produces an empty 200 response.
func (s *ImageServer) Handle(path string, body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if body == nil {
		body = []byte{}
	}
	s.bodies[path] = body
	return s.URL + path
}

// Block makes requests for path wait until the returned channel is closed.
func (s *ImageServer) Block(path string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.block[path] = ch
	return ch
}

// Hits returns the number of requests made for path.
func (s *ImageServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests made for any path.
func (s *ImageServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *ImageServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.bodies[r.URL.Path]
	block := s.block[r.URL.Path]
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(body)
}
