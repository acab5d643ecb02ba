package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// Palette used by the synthetic field scenes.
var (
	MidGray   = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	LeafGreen = color.NRGBA{R: 60, G: 150, B: 50, A: 255}
	SoilBrown = color.NRGBA{R: 140, G: 100, B: 40, A: 255}
	PestBlack = color.NRGBA{R: 15, G: 12, B: 10, A: 255}
	WaxWhite  = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
)

// Uniform returns a w×h image filled with c.
func Uniform(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

// WithRect paints a filled rectangle onto a copy of img.
func WithRect(img image.Image, r image.Rectangle, c color.Color) *image.NRGBA {
	out := imaging.Clone(img)
	r = r.Intersect(out.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			out.Set(x, y, c)
		}
	}
	return out
}

// Checker paints a checkerboard of cell-sized squares alternating a and b
// inside r on a copy of img.
func Checker(img image.Image, r image.Rectangle, cell int, a, b color.Color) *image.NRGBA {
	out := imaging.Clone(img)
	r = r.Intersect(out.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if ((x-r.Min.X)/cell+(y-r.Min.Y)/cell)%2 == 0 {
				out.Set(x, y, a)
			} else {
				out.Set(x, y, b)
			}
		}
	}
	return out
}

// DarkBlobOnLeaf is a green field with a black patch covering the top 14
// rows of the (40,40) block, so that block is 70% dark with a single edge.
func DarkBlobOnLeaf(w, h int) *image.NRGBA {
	return WithRect(Uniform(w, h, LeafGreen), image.Rect(40, 40, 60, 54), PestBlack)
}

// HalfDarkBlock is a green field whose (20,20) block is black in its top
// half: high darkness and extreme variance without extreme darkness.
func HalfDarkBlock(w, h int) *image.NRGBA {
	return WithRect(Uniform(w, h, LeafGreen), image.Rect(20, 20, 40, 30), PestBlack)
}

// StripedBorer is a green field whose (20,20) block is a 2px black and white
// checkerboard, firing the variance, darkness and edge indicators together.
func StripedBorer(w, h int) *image.NRGBA {
	return Checker(Uniform(w, h, LeafGreen), image.Rect(20, 20, 40, 40), 2, PestBlack, WaxWhite)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img), "Failed to encode PNG image")
	return buf.Bytes()
}

// EncodeJPEG encodes img as JPEG bytes at quality 95.
func EncodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}), "Failed to encode JPEG image")
	return buf.Bytes()
}
