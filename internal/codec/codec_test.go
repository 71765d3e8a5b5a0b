package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := range 3 {
		for x := range 4 {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 80), B: 0x20, A: 0xff})
		}
	}
	return img
}

func TestEncodeDecodePNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, testImage(), png.BestSpeed))

	img, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	wr, wg, wb, wa := testImage().At(3, 2).RGBA()
	gr, gg, gb, ga := img.At(3, 2).RGBA()
	assert.Equal(t, []uint32{wr, wg, wb, wa}, []uint32{gr, gg, gb, ga})
}

func TestDecodeJPEG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))

	img, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestDecodeGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := Decode(bytes.NewReader([]byte("not an image")))
	require.ErrorIs(t, err, ErrDecode)
}

func TestEncodeNil(t *testing.T) {
	t.Parallel()

	err := EncodePNG(&bytes.Buffer{}, nil, png.DefaultCompression)
	require.ErrorIs(t, err, ErrEncode)
}
