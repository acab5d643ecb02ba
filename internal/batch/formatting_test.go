package batch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []Item {
	res := &pipeline.AnalysisResult{
		PestID:           "migdolus",
		PestName:         "Migdolus",
		ScientificName:   "Migdolus fryanus",
		Confidence:       0.8,
		InfestationLevel: pipeline.InfestationHigh,
		Source:           pipeline.SourcePattern,
		Recommendations:  knowledge.Recommendations("migdolus"),
		AnalysisMethod:   "Local pattern analysis",
		AllDetections: []pipeline.Detection{
			{PestID: "migdolus", Name: "Migdolus", Confidence: 0.8, Source: pipeline.SourcePattern,
				BoundingBox: &pipeline.BoundingBox{X: 40, Y: 40, Width: 20, Height: 20}},
		},
	}
	return []Item{
		{Path: "/f/coro.png", Result: res},
		{Path: "/f/bad.txt", Err: errors.New("unsupported image format")},
	}
}

func TestFormatBatchResults_JSON(t *testing.T) {
	out, err := formatBatchResults(sampleItems(), "json")
	require.NoError(t, err)

	var decoded struct {
		Images []struct {
			File   string                   `json:"file"`
			Result *pipeline.AnalysisResult `json:"result"`
			Error  string                   `json:"error"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Images, 2)
	assert.Equal(t, "/f/coro.png", decoded.Images[0].File)
	assert.Equal(t, "migdolus", decoded.Images[0].Result.PestID)
	assert.Nil(t, decoded.Images[1].Result)
	assert.Equal(t, "unsupported image format", decoded.Images[1].Error)
}

func TestFormatBatchResults_CSV(t *testing.T) {
	out, err := formatBatchResults(sampleItems(), "csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "error", rows[0][len(rows[0])-1])
	assert.Equal(t, []string{"/f/coro.png", "1", "migdolus", "Migdolus", "0.800", "pattern-heuristic", "40.0", "40.0", "20.0", "20.0", ""}, rows[1])
	assert.Equal(t, "/f/bad.txt", rows[2][0])
	assert.Equal(t, "unsupported image format", rows[2][10])
}

func TestFormatBatchResults_Text(t *testing.T) {
	out, err := formatBatchResults(sampleItems(), "text")
	require.NoError(t, err)
	assert.Contains(t, out, "# /f/coro.png\nPest: Migdolus (Migdolus fryanus)")
	assert.Contains(t, out, "\n# /f/bad.txt\nError: unsupported image format")

	def, err := formatBatchResults(sampleItems(), "")
	require.NoError(t, err)
	assert.Equal(t, out, def)
}

func TestFormatBatchResults_Unsupported(t *testing.T) {
	_, err := formatBatchResults(sampleItems(), "xml")
	assert.Error(t, err)
}
