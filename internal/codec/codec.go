// Package codec decodes fetched image bytes and encodes mirror files.
package codec

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
)

var (
	// ErrDecode is returned when bytes cannot be decoded into an image.
	ErrDecode = errors.New("codec: decode failed")

	// ErrEncode is returned when an image cannot be encoded.
	ErrEncode = errors.New("codec: encode failed")
)

// Decode reads an image in any registered format from r.
// It returns the decoded image and the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, format, nil
}

// EncodePNG writes img to w as PNG at the given compression level.
// PNG is lossless, so level only trades encode time against file size.
func EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrEncode)
	}
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}
