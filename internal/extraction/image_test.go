package extraction

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeResult(t *testing.T, enc EncodedImage) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(enc.Data)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestNormalize_DropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 64})
		}
	}

	enc, err := NewNormalizer(800, 85).Normalize(encodePNG(t, src))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", enc.MIMEType)
	assert.Equal(t, 40, enc.Width)
	assert.Equal(t, 20, enc.Height)

	out := decodeResult(t, enc)
	r, g, b, a := out.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), a, "decoded image must be opaque")
	// Channel values are kept rather than blended toward black.
	assert.InDelta(t, 200, r>>8, 12)
	assert.InDelta(t, 40, g>>8, 12)
	assert.InDelta(t, 40, b>>8, 12)
}

func TestNormalize_DownscalesKeepingAspect(t *testing.T) {
	tests := []struct {
		name          string
		w, h          int
		max           int
		wantW, wantH  int
	}{
		{"landscape", 1600, 1200, 800, 800, 600},
		{"portrait", 1000, 3000, 800, 267, 800},
		{"square", 900, 900, 800, 800, 800},
		{"small is untouched", 300, 200, 800, 300, 200},
		{"exact bound is untouched", 800, 10, 800, 800, 10},
		{"thin strip keeps a pixel", 4000, 2, 800, 800, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewGray(image.Rect(0, 0, tt.w, tt.h))
			enc, err := NewNormalizer(tt.max, 85).Normalize(encodePNG(t, src))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, enc.Width)
			assert.Equal(t, tt.wantH, enc.Height)

			out := decodeResult(t, enc)
			assert.Equal(t, tt.wantW, out.Bounds().Dx())
			assert.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}
}

func TestNormalize_AcceptsJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, nil))

	enc, err := NewNormalizer(0, 0).Normalize(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 16, enc.Width)

	raw, err := enc.Bytes()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestNormalize_RejectsBadInput(t *testing.T) {
	n := NewNormalizer(800, 85)
	for name, raw := range map[string][]byte{
		"empty":     nil,
		"not image": []byte("this is a pdf, honest"),
		"truncated": encodePNG(t, image.NewGray(image.Rect(0, 0, 10, 10)))[:20],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(raw)
			var imgErr *ImageError
			assert.True(t, errors.As(err, &imgErr), "got %v", err)
		})
	}
}

func TestNewNormalizer_Defaults(t *testing.T) {
	n := NewNormalizer(-1, 101)
	assert.Equal(t, DefaultMaxDimension, n.MaxDimension)
	assert.Equal(t, DefaultJPEGQuality, n.JPEGQuality)
}
