package imageio

import (
	"image"
)

// PixelBuffer is a tightly packed, non-premultiplied RGBA view of a decoded
// image. len(Pix) == Width*Height*4 and rows carry no padding.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// Empty reports whether the buffer holds no pixels.
func (b *PixelBuffer) Empty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0 || len(b.Pix) < b.Width*b.Height*4
}

// PixelCount returns Width*Height.
func (b *PixelBuffer) PixelCount() int {
	if b == nil {
		return 0
	}
	return b.Width * b.Height
}

// At returns the RGBA sample at (x, y). Coordinates are not bounds checked.
func (b *PixelBuffer) At(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Brightness returns (R+G+B)/3 for the pixel at (x, y).
func (b *PixelBuffer) Brightness(x, y int) float64 {
	i := (y*b.Width + x) * 4
	return (float64(b.Pix[i]) + float64(b.Pix[i+1]) + float64(b.Pix[i+2])) / 3
}

// ToImage copies the buffer into a new *image.NRGBA.
func (b *PixelBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}

// FromImage converts any image into a PixelBuffer.
func FromImage(img image.Image) *PixelBuffer {
	nrgba := toNRGBA(img)
	bounds := nrgba.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, w*h*4)
	rowLen := w * 4
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+rowLen]
		copy(pix[y*rowLen:(y+1)*rowLen], src)
	}
	return &PixelBuffer{Width: w, Height: h, Pix: pix}
}
