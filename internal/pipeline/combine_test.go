package pipeline

import (
	"testing"

	"github.com/MeKo-Tech/canescan/internal/analysis"
	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/MeKo-Tech/canescan/internal/remote"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func region(score float64, ind analysis.Indicators) analysis.CandidateRegion {
	return analysis.CandidateRegion{CenterX: 50, CenterY: 70, Width: 20, Height: 20, SuspicionScore: score, Indicators: ind}
}

func TestCombine_RemoteWins(t *testing.T) {
	res, err := Combine(CombineInput{
		Predictions: []remote.Prediction{
			{Class: "weevil", Confidence: 0.55, X: 10, Y: 10, Width: 4, Height: 4},
			{Class: "caterpillar", Confidence: 0.77, X: 100, Y: 100, Width: 50, Height: 40},
		},
		Regions: []analysis.CandidateRegion{region(80, analysis.Indicators{ExtremeDark: true})},
		Width:   400,
		Height:  300,
	}, DefaultHeuristics())
	require.NoError(t, err)

	assert.Equal(t, "broca-da-cana", res.PestID)
	assert.Equal(t, "Broca-da-cana", res.PestName)
	assert.Equal(t, "Diatraea saccharalis", res.ScientificName)
	assert.Equal(t, "Diatraea saccharalis - stalk, internodes, galleries", res.Description)
	assert.InDelta(t, 0.77, res.Confidence, 1e-9)
	assert.Equal(t, InfestationModerate, res.InfestationLevel)
	assert.Equal(t, &BoundingBox{X: 75, Y: 80, Width: 50, Height: 40}, res.BoundingBox)
	assert.Equal(t, "Remote classifier", res.AnalysisMethod)
	assert.Equal(t, SourceRemote, res.Source)
	require.Len(t, res.AllDetections, 2)
	assert.Equal(t, "bicudo-da-cana", res.AllDetections[1].PestID)
	assert.Len(t, res.Recommendations, 4)
}

func TestCombine_UnmappedRemoteLabel(t *testing.T) {
	res, err := Combine(CombineInput{
		Predictions: []remote.Prediction{{Class: "aphid", Confidence: 1.4, X: 5, Y: 5, Width: 2, Height: 2}},
		Width:       10,
		Height:      10,
	}, DefaultHeuristics())
	require.NoError(t, err)

	assert.Equal(t, knowledge.UnknownPestID, res.PestID)
	assert.Equal(t, "aphid", res.PestName)
	assert.Equal(t, "aphid", res.AllDetections[0].Name)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9, "confidence is clamped")
	assert.Equal(t, knowledge.DefaultRecommendations(), res.Recommendations)
}

func TestCombine_RegionMapping(t *testing.T) {
	tests := []struct {
		name    string
		ind     analysis.Indicators
		profile analysis.ColorProfile
		wantID  string
		wantSrc Source
	}{
		{"extreme dark, few edges", analysis.Indicators{HighDark: true, ExtremeDark: true, HighVariance: true}, analysis.ColorProfile{}, "migdolus", SourcePattern},
		{"extreme dark with edges", analysis.Indicators{HighDark: true, ExtremeDark: true, HighEdge: true}, analysis.ColorProfile{}, "bicudo-da-cana", SourcePattern},
		{"variance and dark", analysis.Indicators{HighDark: true, HighVariance: true}, analysis.ColorProfile{}, "broca-da-cana", SourcePattern},
		{"edges and variance", analysis.Indicators{HighEdge: true, HighVariance: true}, analysis.ColorProfile{}, "cigarrinha-das-folhas", SourcePattern},
		{"white field", analysis.Indicators{HighEdge: true, HighDark: true}, analysis.ColorProfile{White: 0.2}, "mosca-branca", SourceColor},
		{"brown field", analysis.Indicators{HighEdge: true, HighDark: true}, analysis.ColorProfile{Brown: 0.1}, "cigarrinha-das-raizes", SourceColor},
		{"straw field", analysis.Indicators{HighEdge: true, HighDark: true}, analysis.ColorProfile{GreenBrown: 0.3}, "cigarrinha-das-raizes", SourceColor},
		{"nothing specific", analysis.Indicators{HighEdge: true, HighDark: true}, analysis.ColorProfile{}, knowledge.GeneralPestID, SourcePattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Combine(CombineInput{
				Regions: []analysis.CandidateRegion{region(45, tt.ind)},
				Profile: tt.profile,
				Width:   100,
				Height:  100,
			}, DefaultHeuristics())
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.PestID)
			assert.Equal(t, tt.wantSrc, res.Source)
			assert.Equal(t, &BoundingBox{X: 40, Y: 60, Width: 20, Height: 20}, res.BoundingBox)
			assert.InDelta(t, 0.625, res.Confidence, 1e-9)
		})
	}
}

func TestCombine_GeneralUsesDefaults(t *testing.T) {
	res, err := Combine(CombineInput{
		Regions: []analysis.CandidateRegion{region(45, analysis.Indicators{HighDark: true, HighEdge: true})},
		Width:   100,
		Height:  100,
	}, DefaultHeuristics())
	require.NoError(t, err)
	assert.Equal(t, "Unidentified pest", res.PestName)
	assert.Equal(t, "Local pattern analysis", res.AnalysisMethod)
	assert.Equal(t, knowledge.DefaultRecommendations(), res.Recommendations)
}

func TestCombine_RegionConfidenceCapped(t *testing.T) {
	res, err := Combine(CombineInput{
		Regions: []analysis.CandidateRegion{region(100, analysis.Indicators{HighDark: true, HighVariance: true})},
		Width:   100,
		Height:  100,
	}, DefaultHeuristics())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestCombine_FilenameOnly(t *testing.T) {
	m := knowledge.FilenameMatch{PestID: "mosca-branca", Confidence: 0.7, Keyword: "mosca"}
	res, err := Combine(CombineInput{Filename: &m, Width: 200, Height: 100}, DefaultHeuristics())
	require.NoError(t, err)

	assert.Equal(t, "mosca-branca", res.PestID)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9, "filename source is not boosted by itself")
	assert.Equal(t, "Filename analysis", res.AnalysisMethod)
	assert.Equal(t, &BoundingBox{X: 70, Y: 35, Width: 60, Height: 30}, res.BoundingBox)
	assert.Equal(t, SourceFile, res.AllDetections[0].Source)
}

func TestCombine_Fallback(t *testing.T) {
	res, err := Combine(CombineInput{Width: 100, Height: 50}, DefaultHeuristics())
	require.NoError(t, err)

	assert.Equal(t, knowledge.UnknownPestID, res.PestID)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Equal(t, InfestationLow, res.InfestationLevel)
	assert.Equal(t, "Fallback", res.AnalysisMethod)
	assert.Equal(t, &BoundingBox{X: 35, Y: 17.5, Width: 30, Height: 15}, res.BoundingBox)
	assert.NotEmpty(t, res.Recommendations)
}

func TestCombine_FilenameBoost(t *testing.T) {
	tests := []struct {
		name       string
		conf       float64
		filenameID string
		wantConf   float64
		wantMethod string
	}{
		{"agreeing filename boosts", 0.77, "broca-da-cana", 0.87, "Remote classifier + filename"},
		{"boost is capped", 0.9, "broca-da-cana", 0.95, "Remote classifier + filename"},
		{"already above cap", 0.97, "broca-da-cana", 0.97, "Remote classifier + filename"},
		{"disagreeing filename ignored", 0.77, "migdolus", 0.77, "Remote classifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := knowledge.FilenameMatch{PestID: tt.filenameID, Confidence: 0.9}
			res, err := Combine(CombineInput{
				Predictions: []remote.Prediction{{Class: "borer", Confidence: tt.conf, X: 10, Y: 10, Width: 4, Height: 4}},
				Filename:    &m,
				Width:       20,
				Height:      20,
			}, DefaultHeuristics())
			require.NoError(t, err)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-9)
			assert.Equal(t, tt.wantMethod, res.AnalysisMethod)
			assert.InDelta(t, tt.wantConf, res.AllDetections[0].Confidence, 1e-9, "primary detection carries the boosted confidence")
		})
	}
}

func TestInfestationFor(t *testing.T) {
	tests := []struct {
		conf float64
		want InfestationLevel
	}{
		{0.85, InfestationHigh},
		{0.8, InfestationHigh},
		{0.79, InfestationModerate},
		{0.65, InfestationModerate},
		{0.6, InfestationModerate},
		{0.45, InfestationLow},
		{0.4, InfestationLow},
		{0.39, InfestationUnknown},
		{0.1, InfestationUnknown},
		{0, InfestationUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InfestationFor(tt.conf), "confidence %.2f", tt.conf)
	}
}

func TestValidate(t *testing.T) {
	good := func() *AnalysisResult {
		return &AnalysisResult{
			PestID: "migdolus", PestName: "Migdolus", AnalysisMethod: "x",
			Confidence: 0.5, InfestationLevel: InfestationLow,
			Recommendations: knowledge.DefaultRecommendations(),
			AllDetections:   []Detection{{PestID: "migdolus"}},
		}
	}
	require.NoError(t, validate(good()))

	mutations := map[string]func(*AnalysisResult){
		"pest_id":           func(r *AnalysisResult) { r.PestID = " " },
		"pest_name":         func(r *AnalysisResult) { r.PestName = "" },
		"analysis_method":   func(r *AnalysisResult) { r.AnalysisMethod = "" },
		"recommendations":   func(r *AnalysisResult) { r.Recommendations = nil },
		"all_detections":    func(r *AnalysisResult) { r.AllDetections = nil },
		"confidence":        func(r *AnalysisResult) { r.Confidence = 1.5; r.InfestationLevel = InfestationHigh },
		"infestation_level": func(r *AnalysisResult) { r.InfestationLevel = InfestationHigh },
	}
	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			r := good()
			mutate(r)
			var ie *InvariantError
			require.ErrorAs(t, validate(r), &ie)
			assert.Equal(t, field, ie.Field)
		})
	}
}

func TestCombine_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	ids := []string{"broca-da-cana", "migdolus", "mosca-branca", "unknown"}
	labels := []string{"caterpillar", "weevil", "whitefly", "aphid", ""}

	properties.Property("recommendations never empty and boosted primary stays consistent", prop.ForAll(
		func(conf float64, labelIdx, fileIdx int, withPred, withFile bool) bool {
			in := CombineInput{Width: 64, Height: 48}
			if withPred {
				in.Predictions = []remote.Prediction{{Class: labels[labelIdx], Confidence: conf, X: 10, Y: 10, Width: 5, Height: 5}}
			}
			if withFile {
				in.Filename = &knowledge.FilenameMatch{PestID: ids[fileIdx], Confidence: 0.9}
			}
			res, err := Combine(in, DefaultHeuristics())
			if err != nil || len(res.Recommendations) == 0 {
				return false
			}
			if res.Confidence < 0 || res.Confidence > 1 {
				return false
			}
			if res.Confidence != res.AllDetections[0].Confidence {
				return false
			}
			if withPred && clamp01(conf) < 0.95 && res.Confidence > 0.95 {
				return false
			}
			return !withPred || res.Confidence >= clamp01(conf)
		},
		gen.Float64Range(-0.5, 1.5),
		gen.IntRange(0, len(labels)-1),
		gen.IntRange(0, len(ids)-1),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
