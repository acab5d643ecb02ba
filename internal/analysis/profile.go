// Package analysis holds the pure pixel analyzers: a whole-image color
// profile and a block-wise suspicion scorer.
package analysis

import (
	"github.com/MeKo-Tech/canescan/internal/imageio"
)

// ColorProfile holds the fraction of pixels that fall into each color class.
// Classes overlap, so the ratios do not sum to one.
type ColorProfile struct {
	Dark         float64 `json:"dark"`
	Light        float64 `json:"light"`
	Brown        float64 `json:"brown"`
	Yellow       float64 `json:"yellow"`
	Green        float64 `json:"green"`
	Black        float64 `json:"black"`
	White        float64 `json:"white"`
	Red          float64 `json:"red"`
	YellowOrange float64 `json:"yellowOrange"`
	GreenBrown   float64 `json:"greenBrown"`
}

// ColorClasses lists the class names in a fixed order.
var ColorClasses = []string{
	"dark", "light", "brown", "yellow", "green",
	"black", "white", "red", "yellowOrange", "greenBrown",
}

// Map returns the profile keyed by class name.
func (p ColorProfile) Map() map[string]float64 {
	return map[string]float64{
		"dark":         p.Dark,
		"light":        p.Light,
		"brown":        p.Brown,
		"yellow":       p.Yellow,
		"green":        p.Green,
		"black":        p.Black,
		"white":        p.White,
		"red":          p.Red,
		"yellowOrange": p.YellowOrange,
		"greenBrown":   p.GreenBrown,
	}
}

type colorCounts struct {
	dark, light, brown, yellow, green           int
	black, white, red, yellowOrange, greenBrown int
}

// Profile scans every pixel once and returns the per-class ratios.
func Profile(buf *imageio.PixelBuffer) (ColorProfile, error) {
	if buf.Empty() {
		return ColorProfile{}, &InvalidInputError{Operation: "profile", Reason: "empty pixel buffer"}
	}

	var c colorCounts
	n := buf.PixelCount()
	pix := buf.Pix
	for i := 0; i < n*4; i += 4 {
		classify(int(pix[i]), int(pix[i+1]), int(pix[i+2]), &c)
	}

	total := float64(n)
	return ColorProfile{
		Dark:         float64(c.dark) / total,
		Light:        float64(c.light) / total,
		Brown:        float64(c.brown) / total,
		Yellow:       float64(c.yellow) / total,
		Green:        float64(c.green) / total,
		Black:        float64(c.black) / total,
		White:        float64(c.white) / total,
		Red:          float64(c.red) / total,
		YellowOrange: float64(c.yellowOrange) / total,
		GreenBrown:   float64(c.greenBrown) / total,
	}, nil
}

func classify(r, g, b int, c *colorCounts) {
	brightness := float64(r+g+b) / 3
	if brightness < 80 {
		c.dark++
	} else if brightness > 200 {
		c.light++
	}

	if r > 100 && g > 80 && b < 60 {
		c.brown++
	}
	if r > 200 && g > 200 && b < 100 {
		c.yellow++
	}
	if g > r && g > b && g > 100 {
		c.green++
	}
	if r < 50 && g < 50 && b < 50 {
		c.black++
	}
	if r > 220 && g > 220 && b > 220 {
		c.white++
	}
	if r > 150 && g < 100 && b < 100 {
		c.red++
	}
	if r > 180 && g > 100 && g < 200 && b < 80 {
		c.yellowOrange++
	}
	if r > 80 && g > 80 && b < 70 && abs(r-g) < 40 {
		c.greenBrown++
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
