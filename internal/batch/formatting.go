package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/canescan/internal/pipeline"
)

type jsonItem struct {
	File   string                   `json:"file"`
	Result *pipeline.AnalysisResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// formatBatchResults formats the batch items in the specified format.
func formatBatchResults(items []Item, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(items)
	case "csv":
		return formatCSV(items)
	case "text", "":
		return formatText(items)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatJSON formats items as {"images": [...]}.
func formatJSON(items []Item) (string, error) {
	out := struct {
		Images []jsonItem `json:"images"`
	}{Images: make([]jsonItem, len(items))}

	for i, it := range items {
		out.Images[i] = jsonItem{File: it.Path, Result: it.Result}
		if it.Err != nil {
			out.Images[i].Error = it.Err.Error()
		}
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV writes one row per detection with an extra error column. Files
// that failed to load get a single row carrying the error.
func formatCSV(items []Item) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	header := append(append([]string{}, pipeline.CSVHeader...), "error")
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, it := range items {
		if it.Result == nil {
			row := make([]string, len(header))
			row[0] = it.Path
			if it.Err != nil {
				row[len(row)-1] = it.Err.Error()
			}
			if err := writer.Write(row); err != nil {
				return "", err
			}
			continue
		}
		for _, row := range pipeline.CSVRows(it.Result) {
			row[0] = it.Path
			if err := writer.Write(append(row, it.Result.Error)); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats items as plain text sections.
func formatText(items []Item) (string, error) {
	var output strings.Builder
	for i, it := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", it.Path)
		if it.Err != nil {
			fmt.Fprintf(&output, "Error: %v\n", it.Err)
			continue
		}
		if it.Result == nil {
			continue
		}
		text, err := pipeline.ToPlainText(it.Result)
		if err != nil {
			return "", err
		}
		output.WriteString(text)
	}
	return output.String(), nil
}
