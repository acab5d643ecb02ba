package pipeline

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// RenderOverlay draws the primary bounding box, and thinner boxes for the
// other detections, over a copy of img.
func RenderOverlay(img image.Image, res *AnalysisResult, primary, others color.Color) *image.NRGBA {
	if img == nil {
		return nil
	}
	dst := imaging.Clone(img)
	if res == nil {
		return dst
	}

	for i, d := range res.AllDetections {
		if i == 0 || d.BoundingBox == nil {
			continue
		}
		drawRect(dst, boxRect(d.BoundingBox), others, 1)
	}
	if res.BoundingBox != nil {
		drawRect(dst, boxRect(res.BoundingBox), primary, 3)
	}
	return dst
}

func boxRect(b *BoundingBox) image.Rectangle {
	return image.Rect(
		int(b.X+0.5), int(b.Y+0.5),
		int(b.X+b.Width+0.5), int(b.Y+b.Height+0.5),
	)
}

func drawRect(dst *image.NRGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, rect.Min.Y+t, col)
			dst.Set(x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(rect.Min.X+t, y, col)
			dst.Set(rect.Max.X-1-t, y, col)
		}
	}
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB". Invalid input yields red.
func ParseHexColor(s string) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{R: 255, A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{R: 255, A: 255}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
