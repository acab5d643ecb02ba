package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MeKo-Tech/canescan/internal/analysis"
	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/MeKo-Tech/canescan/internal/remote"
)

// ErrNoDetection is logged when every analyzer came back empty and the
// fallback detection was substituted.
var ErrNoDetection = errors.New("no analyzer produced a detection")

// InvariantError reports a combined result that is missing required fields.
type InvariantError struct {
	Field  string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invalid analysis result: %s %s", e.Field, e.Reason)
}

// Analysis method labels, keyed by the primary detection's source.
var methodLabels = map[Source]string{
	SourceRemote:  "Remote classifier",
	SourceColor:   "Local color analysis",
	SourcePattern: "Local pattern analysis",
	SourceFile:    "Filename analysis",
	SourceDefault: "Fallback",
}

const (
	filenameSuffix    = " + filename"
	unidentifiedName  = "Unidentified pest"
	undeterminedSpecs = "Undetermined species"
	fallbackExtent    = 0.3
)

// CombineInput carries every analyzer output for one image.
type CombineInput struct {
	Predictions []remote.Prediction
	Regions     []analysis.CandidateRegion
	Profile     analysis.ColorProfile
	Filename    *knowledge.FilenameMatch
	Width       int
	Height      int
}

// Combine merges analyzer outputs by fixed priority: remote predictions,
// then block candidates, then the filename hint, then a fallback guess.
func Combine(in CombineInput, h Heuristics) (*AnalysisResult, error) {
	detections := fromPredictions(in.Predictions)
	if len(detections) == 0 {
		detections = fromRegions(in.Regions, in.Profile, h)
	}
	if len(detections) == 0 && in.Filename != nil {
		detections = []Detection{fromFilename(*in.Filename, in.Width, in.Height)}
	}
	if len(detections) == 0 {
		detections = []Detection{fallbackDetection(in.Width, in.Height)}
	}

	method := methodLabels[detections[0].Source]
	if in.Filename != nil && detections[0].Source != SourceFile && in.Filename.PestID == detections[0].PestID {
		// The boosted value is written back so AllDetections[0] agrees with the result.
		detections[0].Confidence = boost(detections[0].Confidence, h.FilenameBoost, h.BoostCap)
		method += filenameSuffix
	}
	primary := detections[0]
	confidence := primary.Confidence

	res := &AnalysisResult{
		PestID:           primary.PestID,
		Confidence:       confidence,
		InfestationLevel: InfestationFor(confidence),
		BoundingBox:      primary.BoundingBox,
		Source:           primary.Source,
		Recommendations:  knowledge.Recommendations(primary.PestID),
		AnalysisMethod:   method,
		AllDetections:    detections,
		ImageWidth:       in.Width,
		ImageHeight:      in.Height,
	}
	describe(res, primary)

	if err := validate(res); err != nil {
		return nil, err
	}
	return res, nil
}

// boost raises confidence by inc without exceeding limit. A confidence
// already at or above the limit is returned unchanged.
func boost(confidence, inc, limit float64) float64 {
	if confidence >= limit {
		return confidence
	}
	return min(confidence+inc, limit)
}

func fromPredictions(preds []remote.Prediction) []Detection {
	if len(preds) == 0 {
		return nil
	}
	out := make([]Detection, 0, len(preds))
	for _, p := range preds {
		id, known := knowledge.ResolveLabel(p.Class)
		name := p.Class
		if name == "" {
			name = unidentifiedName
		}
		if known {
			if rec, ok := knowledge.Lookup(id); ok {
				name = rec.Name
			}
		}
		out = append(out, Detection{
			PestID:     id,
			Name:       name,
			Label:      p.Class,
			Confidence: clamp01(p.Confidence),
			BoundingBox: &BoundingBox{
				X:      p.X - p.Width/2,
				Y:      p.Y - p.Height/2,
				Width:  p.Width,
				Height: p.Height,
			},
			Source: SourceRemote,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func fromRegions(regions []analysis.CandidateRegion, profile analysis.ColorProfile, h Heuristics) []Detection {
	if len(regions) == 0 {
		return nil
	}
	out := make([]Detection, 0, len(regions))
	for _, r := range regions {
		id, src := classifyRegion(r, profile, h)
		out = append(out, Detection{
			PestID:     id,
			Name:       displayName(id),
			Confidence: min(clamp01(0.4+r.SuspicionScore/100*0.5), h.MaxRegionConfidence),
			BoundingBox: &BoundingBox{
				X:      float64(r.Left()),
				Y:      float64(r.Top()),
				Width:  float64(r.Width),
				Height: float64(r.Height),
			},
			Source: src,
		})
	}
	return out
}

// classifyRegion maps a block's indicator pattern, and failing that the
// whole-image color profile, to a pest guess.
func classifyRegion(r analysis.CandidateRegion, p analysis.ColorProfile, h Heuristics) (string, Source) {
	ind := r.Indicators
	switch {
	case ind.ExtremeDark && !ind.HighEdge:
		return "migdolus", SourcePattern
	case ind.ExtremeDark:
		return "bicudo-da-cana", SourcePattern
	case ind.HighVariance && ind.HighDark:
		return "broca-da-cana", SourcePattern
	case ind.HighEdge && ind.HighVariance:
		return "cigarrinha-das-folhas", SourcePattern
	case p.White >= h.WhiteRatio:
		return "mosca-branca", SourceColor
	case p.Brown >= h.BrownRatio || p.GreenBrown >= h.GreenBrownRatio:
		return "cigarrinha-das-raizes", SourceColor
	default:
		return knowledge.GeneralPestID, SourcePattern
	}
}

func fromFilename(m knowledge.FilenameMatch, w, h int) Detection {
	return Detection{
		PestID:      m.PestID,
		Name:        displayName(m.PestID),
		Label:       m.Keyword,
		Confidence:  clamp01(m.Confidence),
		BoundingBox: centeredBox(w, h),
		Source:      SourceFile,
	}
}

func fallbackDetection(w, h int) Detection {
	return Detection{
		PestID:      knowledge.UnknownPestID,
		Name:        unidentifiedName,
		Confidence:  0.5,
		BoundingBox: centeredBox(w, h),
		Source:      SourceDefault,
	}
}

func centeredBox(w, h int) *BoundingBox {
	bw := float64(w) * fallbackExtent
	bh := float64(h) * fallbackExtent
	return &BoundingBox{
		X:      (float64(w) - bw) / 2,
		Y:      (float64(h) - bh) / 2,
		Width:  bw,
		Height: bh,
	}
}

func displayName(id string) string {
	if rec, ok := knowledge.Lookup(id); ok {
		return rec.Name
	}
	return unidentifiedName
}

func describe(res *AnalysisResult, primary Detection) {
	if rec, ok := knowledge.Lookup(primary.PestID); ok {
		res.PestName = rec.Name
		res.ScientificName = rec.ScientificName
		res.Description = rec.Description()
		return
	}

	res.ScientificName = undeterminedSpecs
	switch {
	case primary.Source == SourceRemote && primary.Label != "":
		res.PestName = primary.Label
		res.Description = "Class reported by the remote detector has no knowledge-base entry: " + primary.Label
	case primary.PestID == knowledge.GeneralPestID:
		res.PestName = unidentifiedName
		res.Description = "Anomalous region found; inspect the plant to confirm the pest."
	default:
		res.PestName = unidentifiedName
		res.Description = "No specific pest could be identified from this image."
	}
}

func validate(res *AnalysisResult) error {
	switch {
	case strings.TrimSpace(res.PestID) == "":
		return &InvariantError{Field: "pest_id", Reason: "is empty"}
	case strings.TrimSpace(res.PestName) == "":
		return &InvariantError{Field: "pest_name", Reason: "is empty"}
	case res.AnalysisMethod == "":
		return &InvariantError{Field: "analysis_method", Reason: "is empty"}
	case len(res.Recommendations) == 0:
		return &InvariantError{Field: "recommendations", Reason: "is empty"}
	case len(res.AllDetections) == 0:
		return &InvariantError{Field: "all_detections", Reason: "is empty"}
	case res.Confidence < 0 || res.Confidence > 1:
		return &InvariantError{Field: "confidence", Reason: fmt.Sprintf("%.3f is outside [0,1]", res.Confidence)}
	case res.InfestationLevel != InfestationFor(res.Confidence):
		return &InvariantError{Field: "infestation_level", Reason: "does not match confidence"}
	}
	return nil
}
