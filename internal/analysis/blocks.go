package analysis

import (
	"fmt"
	"sort"

	"github.com/MeKo-Tech/canescan/internal/imageio"
)

// BlockWeights are the points each indicator adds to a block's score.
type BlockWeights struct {
	HighVariance    float64 `json:"high_variance"`
	HighDark        float64 `json:"high_dark"`
	HighEdge        float64 `json:"high_edge"`
	ExtremeDark     float64 `json:"extreme_dark"`
	ExtremeVariance float64 `json:"extreme_variance"`
}

// Total returns the maximum score a block can reach.
func (w BlockWeights) Total() float64 {
	return w.HighVariance + w.HighDark + w.HighEdge + w.ExtremeDark + w.ExtremeVariance
}

// BlockConfig controls the block suspicion scorer.
type BlockConfig struct {
	BlockSize        int
	MaxCandidates    int
	Threshold        float64
	DarkChannelMax   uint8
	EdgeDelta        float64
	HighVariance     float64
	ExtremeVariance  float64
	HighDarkRatio    float64
	ExtremeDarkRatio float64
	HighEdgeRatio    float64
	Weights          BlockWeights
}

// DefaultBlockConfig returns the standard 20px grid settings.
func DefaultBlockConfig() BlockConfig {
	return BlockConfig{
		BlockSize:        20,
		MaxCandidates:    3,
		Threshold:        40,
		DarkChannelMax:   60,
		EdgeDelta:        30,
		HighVariance:     500,
		ExtremeVariance:  1500,
		HighDarkRatio:    0.3,
		ExtremeDarkRatio: 0.6,
		HighEdgeRatio:    0.2,
		Weights: BlockWeights{
			HighVariance:    20,
			HighDark:        25,
			HighEdge:        20,
			ExtremeDark:     15,
			ExtremeVariance: 20,
		},
	}
}

// Validate checks that the grid can be laid over an image and that a block
// can still score above the threshold.
func (c BlockConfig) Validate() error {
	if c.BlockSize <= 0 {
		return &InvalidInputError{Operation: "blocks", Reason: "block size must be positive"}
	}
	if c.MaxCandidates < 0 {
		return &InvalidInputError{Operation: "blocks", Reason: "max candidates must not be negative"}
	}
	if c.Threshold < 0 || c.Threshold >= c.Weights.Total() {
		return &InvalidInputError{
			Operation: "blocks",
			Reason:    fmt.Sprintf("threshold %.1f must be in [0, %.1f)", c.Threshold, c.Weights.Total()),
		}
	}
	return nil
}

// Indicators records which scoring rules fired for a block.
type Indicators struct {
	HighVariance    bool `json:"high_variance"`
	HighDark        bool `json:"high_dark"`
	HighEdge        bool `json:"high_edge"`
	ExtremeDark     bool `json:"extreme_dark"`
	ExtremeVariance bool `json:"extreme_variance"`
}

// CandidateRegion is a block whose suspicion score exceeded the threshold.
type CandidateRegion struct {
	CenterX        int        `json:"center_x"`
	CenterY        int        `json:"center_y"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	SuspicionScore float64    `json:"suspicion_score"`
	DarkRatio      float64    `json:"dark_ratio"`
	Variance       float64    `json:"variance"`
	EdgeCount      int        `json:"edge_count"`
	EdgeRatio      float64    `json:"edge_ratio"`
	Indicators     Indicators `json:"indicators"`
}

// Left returns the x coordinate of the region's left edge.
func (r CandidateRegion) Left() int { return r.CenterX - r.Width/2 }

// Top returns the y coordinate of the region's top edge.
func (r CandidateRegion) Top() int { return r.CenterY - r.Height/2 }

type blockStats struct {
	variance  float64
	darkRatio float64
	edges     int
	edgeRatio float64
}

// ScoreBlocks tiles the buffer into non-overlapping square blocks, scores
// each, and returns the highest-scoring candidates. Trailing partial blocks
// are skipped.
func ScoreBlocks(buf *imageio.PixelBuffer, cfg BlockConfig) ([]CandidateRegion, error) {
	if buf.Empty() {
		return nil, &InvalidInputError{Operation: "blocks", Reason: "empty pixel buffer"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	size := cfg.BlockSize
	var candidates []CandidateRegion
	for by := 0; by+size <= buf.Height; by += size {
		for bx := 0; bx+size <= buf.Width; bx += size {
			st := measureBlock(buf, bx, by, size, cfg)
			ind, score := scoreBlock(st, cfg)
			if score <= cfg.Threshold {
				continue
			}
			candidates = append(candidates, CandidateRegion{
				CenterX:        bx + size/2,
				CenterY:        by + size/2,
				Width:          size,
				Height:         size,
				SuspicionScore: score,
				DarkRatio:      st.darkRatio,
				Variance:       st.variance,
				EdgeCount:      st.edges,
				EdgeRatio:      st.edgeRatio,
				Indicators:     ind,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SuspicionScore > candidates[j].SuspicionScore
	})
	if len(candidates) > cfg.MaxCandidates {
		candidates = candidates[:cfg.MaxCandidates]
	}
	return candidates, nil
}

func measureBlock(buf *imageio.PixelBuffer, bx, by, size int, cfg BlockConfig) blockStats {
	n := float64(size * size)
	var sumR, sumG, sumB float64
	dark := 0
	for y := by; y < by+size; y++ {
		for x := bx; x < bx+size; x++ {
			r, g, b, _ := buf.At(x, y)
			sumR += float64(r)
			sumG += float64(g)
			sumB += float64(b)
			if r < cfg.DarkChannelMax && g < cfg.DarkChannelMax && b < cfg.DarkChannelMax {
				dark++
			}
		}
	}
	meanR, meanG, meanB := sumR/n, sumG/n, sumB/n

	var sq float64
	edges := 0
	for y := by; y < by+size; y++ {
		for x := bx; x < bx+size; x++ {
			r, g, b, _ := buf.At(x, y)
			dr, dg, db := float64(r)-meanR, float64(g)-meanG, float64(b)-meanB
			sq += (dr*dr + dg*dg + db*db) / 3

			lum := buf.Brightness(x, y)
			if x+1 < bx+size && absf(lum-buf.Brightness(x+1, y)) > cfg.EdgeDelta {
				edges++
			}
			if y+1 < by+size && absf(lum-buf.Brightness(x, y+1)) > cfg.EdgeDelta {
				edges++
			}
		}
	}

	return blockStats{
		variance:  sq / n,
		darkRatio: float64(dark) / n,
		edges:     edges,
		edgeRatio: float64(edges) / n,
	}
}

func scoreBlock(st blockStats, cfg BlockConfig) (Indicators, float64) {
	ind := Indicators{
		HighVariance:    st.variance > cfg.HighVariance,
		HighDark:        st.darkRatio > cfg.HighDarkRatio,
		HighEdge:        st.edgeRatio > cfg.HighEdgeRatio,
		ExtremeDark:     st.darkRatio > cfg.ExtremeDarkRatio,
		ExtremeVariance: st.variance > cfg.ExtremeVariance,
	}

	w := cfg.Weights
	score := 0.0
	if ind.HighVariance {
		score += w.HighVariance
	}
	if ind.HighDark {
		score += w.HighDark
	}
	if ind.HighEdge {
		score += w.HighEdge
	}
	if ind.ExtremeDark {
		score += w.ExtremeDark
	}
	if ind.ExtremeVariance {
		score += w.ExtremeVariance
	}
	return ind, score
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
