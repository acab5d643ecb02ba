package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ToJSON serializes a single AnalysisResult to pretty JSON.
func ToJSON(res *AnalysisResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONResults serializes multiple results to pretty JSON.
func ToJSONResults(results []*AnalysisResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText renders a human-readable summary.
func ToPlainText(res *AnalysisResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	if res.Filename != "" {
		fmt.Fprintf(&sb, "File: %s\n", res.Filename)
	}
	fmt.Fprintf(&sb, "Pest: %s (%s)\n", res.PestName, res.ScientificName)
	fmt.Fprintf(&sb, "Confidence: %.0f%%\n", res.Confidence*100)
	fmt.Fprintf(&sb, "Infestation level: %s\n", res.InfestationLevel)
	fmt.Fprintf(&sb, "Method: %s\n", res.AnalysisMethod)
	if res.BoundingBox != nil {
		b := res.BoundingBox
		fmt.Fprintf(&sb, "Location: x=%.0f y=%.0f w=%.0f h=%.0f\n", b.X, b.Y, b.Width, b.Height)
	}
	if res.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", res.Description)
	}
	if res.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", res.Error)
	}
	sb.WriteString("Recommendations:\n")
	for i, r := range res.Recommendations {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, r.Type, r.Description)
		for _, p := range r.Products {
			fmt.Fprintf(&sb, "     - %s\n", p)
		}
	}
	if len(res.AllDetections) > 1 {
		sb.WriteString("Other detections:\n")
		for _, d := range res.AllDetections[1:] {
			fmt.Fprintf(&sb, "  - %s %.0f%% (%s)\n", d.Name, d.Confidence*100, d.Source)
		}
	}
	return sb.String(), nil
}

// CSVHeader is the column layout written by ToCSV.
var CSVHeader = []string{"file", "rank", "pest_id", "name", "confidence", "source", "x", "y", "w", "h"}

// ToCSV exports one row per detection, primary first, with a header.
func ToCSV(res *AnalysisResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(CSVHeader)
	for _, row := range CSVRows(res) {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.String(), w.Error()
}

// CSVRows returns the data rows ToCSV would write, without the header.
func CSVRows(res *AnalysisResult) [][]string {
	rows := make([][]string, 0, len(res.AllDetections))
	for i, d := range res.AllDetections {
		conf := d.Confidence
		if i == 0 {
			conf = res.Confidence
		}
		row := []string{
			res.Filename,
			strconv.Itoa(i + 1),
			d.PestID,
			d.Name,
			fmt.Sprintf("%.3f", conf),
			string(d.Source),
			"", "", "", "",
		}
		if b := d.BoundingBox; b != nil {
			row[6] = fmt.Sprintf("%.1f", b.X)
			row[7] = fmt.Sprintf("%.1f", b.Y)
			row[8] = fmt.Sprintf("%.1f", b.Width)
			row[9] = fmt.Sprintf("%.1f", b.Height)
		}
		rows = append(rows, row)
	}
	return rows
}
