package knowledge

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filename match confidences by keyword tier.
const (
	HighTierConfidence    = 0.9
	MediumTierConfidence  = 0.7
	DefaultTierConfidence = 0.5
)

// FilenameMatch is a pest hint derived from an uploaded file's name.
type FilenameMatch struct {
	PestID     string  `json:"pest_id"`
	Confidence float64 `json:"confidence"`
	Keyword    string  `json:"keyword"`
}

// MatchFilename scans name for detection keywords. Records are tried in
// knowledge-base order and the first record with a matching keyword wins.
func MatchFilename(name string) (FilenameMatch, bool) {
	folded := foldName(filepath.Base(name))
	if folded == "" {
		return FilenameMatch{}, false
	}

	for _, p := range pests {
		for _, kw := range p.DetectionKeywords {
			if !strings.Contains(folded, kw) {
				continue
			}
			return FilenameMatch{
				PestID:     p.ID,
				Confidence: tierConfidence(folded, p.Tiers),
				Keyword:    kw,
			}, true
		}
	}
	return FilenameMatch{}, false
}

func tierConfidence(folded string, tiers KeywordTiers) float64 {
	switch {
	case containsAny(folded, tiers.High):
		return HighTierConfidence
	case containsAny(folded, tiers.Medium):
		return MediumTierConfidence
	default:
		return DefaultTierConfidence
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// foldName lower-cases and strips diacritics so "Coró_Broca.JPG" and
// "coro_broca.jpg" match the same keywords.
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return cases.Fold().String(stripped)
}
