package knowledge

// Recommendation is one category of control guidance.
type Recommendation struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Products    []string `json:"products" yaml:"products"`
}

type controlSet struct {
	chemical, biological, cultural, monitoring []string
}

const (
	chemicalType   = "Chemical control"
	biologicalType = "Biological control"
	culturalType   = "Cultural control"
	monitoringType = "Monitoring"
)

var controlSets = map[string]controlSet{
	"broca-da-cana": {
		chemical: []string{
			"Apply Bacillus thuringiensis based insecticides",
			"Use Tebufenozide (Mimic) in directed application",
			"Apply Chlorantraniliprole (Premio) to the soil",
		},
		biological: []string{
			"Release Cotesia flavipes (parasitoid)",
			"Use Trichogramma galloi (egg parasitoid)",
			"Apply Beauveria bassiana (entomopathogenic fungus)",
		},
		cultural: []string{
			"Destroy old ratoons",
			"Plant resistant varieties",
			"Control host weeds",
		},
		monitoring: []string{
			"Sex pheromone traps",
			"Internode sampling",
			"Monitor adult flights",
		},
	},
	"cigarrinha-das-raizes": {
		chemical: []string{
			"Apply Imidacloprid at planting",
			"Use Thiamethoxam as a foliar spray",
			"Apply Fipronil to the soil",
		},
		biological: []string{
			"Release Metarhizium anisopliae",
			"Use Beauveria bassiana",
			"Conserve natural enemies",
		},
		cultural: []string{
			"Manage irrigation to avoid waterlogging",
			"Remove host plants",
			"Rotate with non-host crops",
		},
		monitoring: []string{
			"Yellow sticky traps",
			"Sample nymphs in the soil",
			"Monitor plant symptoms",
		},
	},
	"bicudo-da-cana": {
		chemical: []string{
			"Apply granular Carbofuran at planting",
			"Use Fipronil in directed application",
			"Apply Imidacloprid to the soil",
		},
		biological: []string{
			"Release Beauveria bassiana",
			"Use Metarhizium anisopliae",
			"Conserve natural predators",
		},
		cultural: []string{
			"Destroy crop residues",
			"Prepare the soil properly",
			"Plant at the right time of year",
		},
		monitoring: []string{
			"Aggregation pheromone traps",
			"Sample adults in the soil",
			"Inspect damage at the plant base",
		},
	},
	"migdolus": {
		chemical: []string{
			"Apply granular Fipronil in the furrow",
			"Use Imidacloprid at planting",
			"Apply Carbofuran over the whole area",
		},
		biological: []string{
			"Release Beauveria bassiana",
			"Use Metarhizium anisopliae",
			"Apply entomopathogenic nematodes",
		},
		cultural: []string{
			"Deep ploughing",
			"Remove host plants",
			"Rotate with grasses",
		},
		monitoring: []string{
			"Light traps",
			"Sample larvae in the soil",
			"Monitor adult emergence",
		},
	},
	"cigarrinha-das-folhas": {
		chemical: []string{
			"Apply foliar Imidacloprid",
			"Use systemic Thiamethoxam",
			"Spray Acetamiprid",
		},
		biological: []string{
			"Release Metarhizium anisopliae",
			"Use Beauveria bassiana",
			"Conserve natural predators",
		},
		cultural: []string{
			"Manage irrigation",
			"Control weeds",
			"Use tolerant varieties",
		},
		monitoring: []string{
			"Yellow traps",
			"Sample nymphs on leaves",
			"Monitor symptoms",
		},
	},
	"mosca-branca": {
		chemical: []string{
			"Apply systemic Imidacloprid",
			"Use Spiromesifen (Oberon)",
			"Apply Pyriproxyfen (Tiger)",
		},
		biological: []string{
			"Release Encarsia formosa",
			"Use Beauveria bassiana",
			"Conserve natural predators",
		},
		cultural: []string{
			"Remove host weeds",
			"Use physical barriers",
			"Manage irrigation",
		},
		monitoring: []string{
			"Yellow sticky traps",
			"Sample leaf undersides",
			"Monitor viral symptoms",
		},
	},
}

var defaultControlSet = controlSet{
	chemical: []string{
		"Consult an agronomist for a specific recommendation",
		"Run a resistance analysis before application",
		"Follow label instructions and technical guidance",
	},
	biological: []string{
		"Consider biological control agents",
		"Preserve natural enemies",
		"Apply beneficial microorganisms",
	},
	cultural: []string{
		"Adopt integrated pest management practices",
		"Rotate crops where possible",
		"Keep the area free of weeds",
	},
	monitoring: []string{
		"Monitor the crop regularly",
		"Use traps specific to the pest",
		"Track population levels",
	},
}

func (s controlSet) recommendations() []Recommendation {
	return []Recommendation{
		{
			Type:        chemicalType,
			Description: "Targeted insecticides for effective control of the pest.",
			Products:    append([]string(nil), s.chemical...),
		},
		{
			Type:        biologicalType,
			Description: "Biological agents for sustainable, ecological control.",
			Products:    append([]string(nil), s.biological...),
		},
		{
			Type:        culturalType,
			Description: "Management practices that reduce pest incidence and development.",
			Products:    append([]string(nil), s.cultural...),
		},
		{
			Type:        monitoringType,
			Description: "Techniques to track the pest and detect it early.",
			Products:    append([]string(nil), s.monitoring...),
		},
	}
}

// Recommendations returns the four control categories for pestID, falling
// back to the generic set when the pest has no specific entry. The result
// is never empty and is safe for the caller to modify.
func Recommendations(pestID string) []Recommendation {
	if s, ok := controlSets[pestID]; ok {
		return s.recommendations()
	}
	return defaultControlSet.recommendations()
}

// DefaultRecommendations returns the generic control guidance.
func DefaultRecommendations() []Recommendation {
	return defaultControlSet.recommendations()
}

// ErrorRecommendations is the single entry attached to a failed analysis.
func ErrorRecommendations() []Recommendation {
	return []Recommendation{{
		Type:        "General recommendation",
		Description: "The image could not be analyzed. Try again with a clearer photo or consult a specialist.",
		Products:    []string{"Manual analysis", "Specialist consultation"},
	}}
}
