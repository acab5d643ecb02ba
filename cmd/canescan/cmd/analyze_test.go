package cmd

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_Text(t *testing.T) {
	dir := isolate(t)
	photo := writeFieldPhoto(t, dir, "lagarta_talhao3.png")

	stdout, _, err := execute(t, "analyze", photo)
	require.NoError(t, err)
	assert.Contains(t, stdout, "File: lagarta_talhao3.png")
	assert.Contains(t, stdout, "Pest: Broca-da-cana (Diatraea saccharalis)")
	assert.Contains(t, stdout, "Recommendations:")
}

func TestAnalyze_JSON(t *testing.T) {
	dir := isolate(t)
	photo := writeFieldPhoto(t, dir, "lagarta.png")

	stdout, _, err := execute(t, "analyze", photo, "--format", "json")
	require.NoError(t, err)

	var res pipeline.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "broca-da-cana", res.PestID)
	assert.Equal(t, 80, res.ImageWidth)
	assert.NotEmpty(t, res.Recommendations)
}

func TestAnalyze_CSVToFile(t *testing.T) {
	dir := isolate(t)
	photo := writeFieldPhoto(t, dir, "lagarta.png")
	outFile := filepath.Join(dir, "out.csv")

	stdout, stderr, err := execute(t, "analyze", photo, "-f", "csv", "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Results written to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, pipeline.CSVHeader, rows[0])
	assert.Equal(t, "broca-da-cana", rows[1][2])
}

func TestAnalyze_MultipleFiles(t *testing.T) {
	dir := isolate(t)
	a := writeFieldPhoto(t, dir, "lagarta.png")
	b := writeFieldPhoto(t, dir, "mosca.png")

	stdout, _, err := execute(t, "analyze", a, b, "--format", "json")
	require.NoError(t, err)

	var out struct {
		Images []struct {
			File   string                   `json:"file"`
			Result *pipeline.AnalysisResult `json:"result"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Images, 2)
	assert.Equal(t, a, out.Images[0].File)
	assert.Equal(t, "broca-da-cana", out.Images[0].Result.PestID)
	assert.Equal(t, "mosca-branca", out.Images[1].Result.PestID)
}

func TestAnalyze_Overlay(t *testing.T) {
	dir := isolate(t)
	photo := writeFieldPhoto(t, dir, "lagarta.png")
	overlays := filepath.Join(dir, "overlays")

	_, _, err := execute(t, "analyze", photo, "--overlay-dir", overlays)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(overlays, "lagarta_overlay.png"))
}

func TestAnalyze_FilenameMatchingDisabled(t *testing.T) {
	dir := isolate(t)
	photo := writeFieldPhoto(t, dir, "lagarta.png")

	stdout, _, err := execute(t, "analyze", photo, "--filename-matching=false", "--format", "json")
	require.NoError(t, err)

	var res pipeline.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.NotEqual(t, pipeline.SourceFile, res.Source)
}

func TestAnalyze_Errors(t *testing.T) {
	dir := isolate(t)
	photo := writeFieldPhoto(t, dir, "lagarta.png")
	notImage := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(notImage, []byte("not an image"), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"analyze"}, "requires at least 1 arg"},
		{"missing file", []string{"analyze", filepath.Join(dir, "nope.png")}, "nope.png"},
		{"undecodable", []string{"analyze", notImage}, "notes.png"},
		{"bad format", []string{"analyze", photo, "--format", "xml"}, "invalid output format"},
		{"bad threshold", []string{"analyze", photo, "--suspicion-threshold", "150"}, "suspicion threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
