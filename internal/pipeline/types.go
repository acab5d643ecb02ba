package pipeline

import (
	"math"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
)

// Source identifies the analyzer that produced a detection.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceColor   Source = "color-heuristic"
	SourcePattern Source = "pattern-heuristic"
	SourceFile    Source = "filename"
	SourceDefault Source = "fallback"
)

// InfestationLevel is the ordinal label derived from confidence.
type InfestationLevel string

const (
	InfestationHigh     InfestationLevel = "High"
	InfestationModerate InfestationLevel = "Moderate"
	InfestationLow      InfestationLevel = "Low"
	InfestationUnknown  InfestationLevel = "Unknown"
)

// BoundingBox is a top-left anchored rectangle in source-image pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is a single pest guess from one analyzer.
type Detection struct {
	PestID      string       `json:"pest_id"`
	Name        string       `json:"name"`
	Label       string       `json:"label,omitempty"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Source      Source       `json:"source"`
}

// AnalysisResult is the outcome of analyzing one image. The primary
// detection's identity, confidence and box are lifted to the top level.
type AnalysisResult struct {
	PestID           string                     `json:"pest_id"`
	PestName         string                     `json:"pest_name"`
	ScientificName   string                     `json:"scientific_name"`
	Description      string                     `json:"description"`
	Confidence       float64                    `json:"confidence"`
	InfestationLevel InfestationLevel           `json:"infestation_level"`
	BoundingBox      *BoundingBox               `json:"bounding_box,omitempty"`
	Source           Source                     `json:"source,omitempty"`
	Recommendations  []knowledge.Recommendation `json:"recommendations"`
	AnalysisMethod   string                     `json:"analysis_method"`
	AllDetections    []Detection                `json:"all_detections"`
	ImageWidth       int                        `json:"image_width"`
	ImageHeight      int                        `json:"image_height"`
	Filename         string                     `json:"filename,omitempty"`
	Error            string                     `json:"error,omitempty"`
}

// Failed reports whether the result is the terminal error result.
func (r *AnalysisResult) Failed() bool {
	return r != nil && r.PestID == knowledge.ErrorPestID
}

// InfestationFor maps a confidence to its infestation level. Boundaries are
// inclusive lower bounds of the higher tier.
func InfestationFor(confidence float64) InfestationLevel {
	switch {
	case confidence >= 0.8:
		return InfestationHigh
	case confidence >= 0.6:
		return InfestationModerate
	case confidence >= 0.4:
		return InfestationLow
	default:
		return InfestationUnknown
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
