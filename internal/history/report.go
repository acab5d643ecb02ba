package history

import (
	"fmt"
	"regexp"
	"strings"
)

var slugSeparators = regexp.MustCompile(`\s+`)

// RenderReport produces the plain-text report for one saved analysis.
func RenderReport(e *Entry) string {
	if e == nil {
		return ""
	}
	r := e.Result
	var sb strings.Builder
	sb.WriteString("PEST ANALYSIS REPORT - CANESCAN\n\n")
	fmt.Fprintf(&sb, "Analysis date: %s\n", e.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	if e.Filename != "" {
		fmt.Fprintf(&sb, "Image: %s\n", e.Filename)
	}
	fmt.Fprintf(&sb, "Identified pest: %s\n", r.PestName)
	fmt.Fprintf(&sb, "Description: %s\n", r.Description)
	fmt.Fprintf(&sb, "Confidence: %d%%\n", int(r.Confidence*100+0.5))
	fmt.Fprintf(&sb, "Infestation level: %s\n", r.InfestationLevel)
	sb.WriteString("\nCONTROL RECOMMENDATIONS:\n")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, rec.Type)
		fmt.Fprintf(&sb, "   Description: %s\n", rec.Description)
		fmt.Fprintf(&sb, "   Recommended products: %s\n", strings.Join(rec.Products, ", "))
	}
	sb.WriteString("\n---\nReport generated by canescan\n")
	return sb.String()
}

// ReportFilename is the suggested download name for an entry's report.
func ReportFilename(e *Entry) string {
	slug := strings.ToLower(slugSeparators.ReplaceAllString(strings.TrimSpace(e.Result.PestName), "-"))
	if slug == "" {
		slug = "unknown"
	}
	return fmt.Sprintf("pest-report-%s-%s.txt", slug, e.CreatedAt.UTC().Format("2006-01-02"))
}
