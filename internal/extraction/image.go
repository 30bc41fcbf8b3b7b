package extraction

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 800
	DefaultJPEGQuality  = 85
)

// EncodedImage is a normalized receipt ready to send to the model.
type EncodedImage struct {
	MIMEType string
	Data     string // base64, standard alphabet
	Width    int
	Height   int
}

// Bytes decodes Data back to the JPEG bytes.
func (e EncodedImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Data)
}

// Normalizer turns uploaded receipt images into bounded, opaque JPEGs.
type Normalizer struct {
	MaxDimension int
	JPEGQuality  int
}

// NewNormalizer returns a Normalizer, substituting defaults for non-positive values.
func NewNormalizer(maxDimension, quality int) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Normalizer{MaxDimension: maxDimension, JPEGQuality: quality}
}

// Normalize decodes raw, drops any alpha channel, shrinks it so neither side
// exceeds MaxDimension (never enlarging) and re-encodes it as base64 JPEG.
func (n *Normalizer) Normalize(raw []byte) (EncodedImage, error) {
	if len(raw) == 0 {
		return EncodedImage{}, &ImageError{Reason: "empty upload"}
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return EncodedImage{}, &ImageError{Reason: "unsupported or corrupt image", Cause: err}
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return EncodedImage{}, &ImageError{Reason: "image " + format + " has no pixels"}
	}

	img := flatten(src)
	img = n.fit(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.JPEGQuality}); err != nil {
		return EncodedImage{}, &ImageError{Reason: "jpeg encode", Cause: err}
	}

	out := img.Bounds()
	return EncodedImage{
		MIMEType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:    out.Dx(),
		Height:   out.Dy(),
	}, nil
}

// flatten discards alpha: each pixel keeps its non-premultiplied colour
// channels and becomes fully opaque. Already-opaque images pass through.
func flatten(src image.Image) image.Image {
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}

// fit scales img down to MaxDimension on its longer side, keeping aspect ratio.
func (n *Normalizer) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= n.MaxDimension && h <= n.MaxDimension {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = n.MaxDimension
		nh = max(1, (h*n.MaxDimension+w/2)/w)
	} else {
		nh = n.MaxDimension
		nw = max(1, (w*n.MaxDimension+h/2)/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
