package imgcache

import (
	"errors"

	"github.com/meigma/imgcache/cache/disk"
	imghttp "github.com/meigma/imgcache/http"
	"github.com/meigma/imgcache/internal/codec"
)

// Errors re-exported from the fetch path.
var (
	// ErrDownload is returned when the request fails or the server does not answer 200 OK.
	ErrDownload = imghttp.ErrDownload

	// ErrNoContent is returned when the server answers with an empty body.
	ErrNoContent = imghttp.ErrNoContent

	// ErrDecode is returned when downloaded bytes are not a supported image.
	ErrDecode = codec.ErrDecode

	// ErrPersist is returned when a fetched image cannot be written to the mirror.
	ErrPersist = disk.ErrPersist
)

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("imgcache: loader closed")
