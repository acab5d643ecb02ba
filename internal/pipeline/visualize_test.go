package pipeline

import (
	"image/color"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOverlay(t *testing.T) {
	img := testutil.Uniform(100, 100, testutil.LeafGreen)
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	res := sampleResult()
	res.AllDetections[1].BoundingBox = &BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}

	out := RenderOverlay(img, res, red, blue)
	require.NotNil(t, out)

	assert.Equal(t, red, out.NRGBAAt(40, 40))
	assert.Equal(t, red, out.NRGBAAt(42, 50), "primary box is three pixels thick")
	assert.Equal(t, testutil.LeafGreen, out.NRGBAAt(43, 50))
	assert.Equal(t, blue, out.NRGBAAt(0, 5))
	assert.Equal(t, testutil.LeafGreen, out.NRGBAAt(5, 5))
	assert.Equal(t, testutil.LeafGreen, img.NRGBAAt(40, 40), "source is not modified")
}

func TestRenderOverlay_Edges(t *testing.T) {
	assert.Nil(t, RenderOverlay(nil, sampleResult(), color.White, color.White))

	img := testutil.Uniform(10, 10, testutil.MidGray)
	out := RenderOverlay(img, nil, color.White, color.White)
	assert.Equal(t, testutil.MidGray, out.NRGBAAt(0, 0))

	res := sampleResult()
	res.BoundingBox = &BoundingBox{X: 50, Y: 50, Width: 5, Height: 5}
	out = RenderOverlay(img, res, color.White, color.White)
	assert.Equal(t, testutil.MidGray, out.NRGBAAt(9, 9), "out-of-bounds box is skipped")
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 255}, ParseHexColor("#123456"))
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0x00, B: 0xff, A: 255}, ParseHexColor("FF00FF"))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, ParseHexColor("nope"))
}
