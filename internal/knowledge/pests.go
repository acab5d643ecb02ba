// Package knowledge is the static sugarcane pest knowledge base: pest
// records, control recommendations, remote label mapping and filename
// keyword matching. All data is read-only after package init.
package knowledge

import "strings"

// Sentinel pest identifiers that do not name a knowledge-base record.
const (
	UnknownPestID = "unknown"
	GeneralPestID = "general"
	ErrorPestID   = "error"
)

// Size is an approximate body size range.
type Size struct {
	Length string `json:"length" yaml:"length"`
	Width  string `json:"width" yaml:"width"`
}

// VisualFeatures describes how a pest looks in the field.
type VisualFeatures struct {
	Colors    []string `json:"colors" yaml:"colors"`
	Size      Size     `json:"size" yaml:"size"`
	Shape     string   `json:"shape" yaml:"shape"`
	Texture   string   `json:"texture" yaml:"texture"`
	HeadColor string   `json:"head_color,omitempty" yaml:"head_color,omitempty"`
	Wings     string   `json:"wings,omitempty" yaml:"wings,omitempty"`
	Rostrum   string   `json:"rostrum,omitempty" yaml:"rostrum,omitempty"`
	Antennae  string   `json:"antennae,omitempty" yaml:"antennae,omitempty"`
}

// KeywordTiers groups filename keywords by how strongly they indicate a pest.
type KeywordTiers struct {
	High   []string `json:"high" yaml:"high"`
	Medium []string `json:"medium" yaml:"medium"`
	Low    []string `json:"low" yaml:"low"`
}

// PestRecord is one knowledge-base entry.
type PestRecord struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	ScientificName    string         `json:"scientific_name" yaml:"scientific_name"`
	CommonNames       []string       `json:"common_names" yaml:"common_names"`
	Visual            VisualFeatures `json:"visual_features" yaml:"visual_features"`
	Habitat           []string       `json:"habitat" yaml:"habitat"`
	Damage            []string       `json:"damage" yaml:"damage"`
	Season            []string       `json:"season" yaml:"season"`
	DetectionKeywords []string       `json:"detection_keywords" yaml:"detection_keywords"`
	Tiers             KeywordTiers   `json:"confidence_tiers" yaml:"confidence_tiers"`
}

// Description renders "<scientific name> - <habitat tags>".
func (p PestRecord) Description() string {
	return p.ScientificName + " - " + strings.Join(p.Habitat, ", ")
}

// pests is kept in a fixed order; the filename matcher depends on it.
var pests = []PestRecord{
	{
		ID:             "broca-da-cana",
		Name:           "Broca-da-cana",
		ScientificName: "Diatraea saccharalis",
		CommonNames:    []string{"Broca-da-cana", "Lagarta-do-cartucho", "Broca-do-colmo", "Sugarcane borer"},
		Visual: VisualFeatures{
			Colors:    []string{"pale yellow", "cream", "light brown"},
			Size:      Size{Length: "20-25mm", Width: "3-4mm"},
			Shape:     "elongated cylindrical",
			Texture:   "smooth with stripes",
			HeadColor: "dark brown",
		},
		Habitat:           []string{"stalk", "internodes", "galleries"},
		Damage:            []string{"round bore holes", "internal galleries", "stalk breakage"},
		Season:            []string{"October-March", "rainy season"},
		DetectionKeywords: []string{"lagarta", "broca", "cartucho", "diatraea"},
		Tiers: KeywordTiers{
			High:   []string{"lagarta", "broca", "cartucho", "colmo"},
			Medium: []string{"amarelo", "cilindrica", "listras"},
			Low:    []string{"inseto", "praga"},
		},
	},
	{
		ID:             "cigarrinha-das-raizes",
		Name:           "Cigarrinha-das-raízes",
		ScientificName: "Aeneolamia varia",
		CommonNames:    []string{"Cigarrinha-das-raízes", "Spittle Bug", "Cigarrinha-da-espuma"},
		Visual: VisualFeatures{
			Colors:  []string{"reddish brown", "chestnut", "bronze"},
			Size:    Size{Length: "8-12mm", Width: "4-6mm"},
			Shape:   "elongated oval",
			Texture: "glossy metallic",
			Wings:   "transparent with veins",
		},
		Habitat:           []string{"roots", "plant base", "moist soil"},
		Damage:            []string{"yellowing", "leaf drying", "stunted growth"},
		Season:            []string{"November-April", "wet season"},
		DetectionKeywords: []string{"cigarrinha", "spittle", "espuma", "aeneolamia"},
		Tiers: KeywordTiers{
			High:   []string{"cigarrinha", "spittle", "espuma", "bronze"},
			Medium: []string{"marrom", "brilhante", "oval"},
			Low:    []string{"inseto", "voador"},
		},
	},
	{
		ID:             "bicudo-da-cana",
		Name:           "Bicudo-da-cana",
		ScientificName: "Sphenophorus levis",
		CommonNames:    []string{"Bicudo-da-cana", "Gorgulho-da-cana", "Besouro-bicudo"},
		Visual: VisualFeatures{
			Colors:  []string{"black", "dark brown", "dark gray"},
			Size:    Size{Length: "8-15mm", Width: "4-7mm"},
			Shape:   "robust oval",
			Texture: "rough and pitted",
			Rostrum: "long and curved",
		},
		Habitat:           []string{"rhizome", "stalk base", "soil"},
		Damage:            []string{"holes at the base", "tiller death", "sprouting gaps"},
		Season:            []string{"year-round", "dry-season peaks"},
		DetectionKeywords: []string{"bicudo", "gorgulho", "besouro", "sphenophorus"},
		Tiers: KeywordTiers{
			High:   []string{"bicudo", "gorgulho", "besouro", "rostrum"},
			Medium: []string{"preto", "rugoso", "oval"},
			Low:    []string{"escuro", "inseto"},
		},
	},
	{
		ID:             "migdolus",
		Name:           "Migdolus",
		ScientificName: "Migdolus fryanus",
		CommonNames:    []string{"Migdolus", "Besouro-preto", "Coró-da-cana"},
		Visual: VisualFeatures{
			Colors:   []string{"glossy black", "very dark brown"},
			Size:     Size{Length: "12-18mm", Width: "6-9mm"},
			Shape:    "convex oval",
			Texture:  "smooth and glossy",
			Antennae: "clubbed",
		},
		Habitat:           []string{"soil", "roots", "rhizomes"},
		Damage:            []string{"severed roots", "plant death", "stand gaps"},
		Season:            []string{"September-December", "start of the rains"},
		DetectionKeywords: []string{"migdolus", "besouro", "preto", "coro"},
		Tiers: KeywordTiers{
			High:   []string{"migdolus", "besouro-preto", "coro"},
			Medium: []string{"preto", "brilhante", "oval"},
			Low:    []string{"escuro", "besouro"},
		},
	},
	{
		ID:             "cigarrinha-das-folhas",
		Name:           "Cigarrinha-das-folhas",
		ScientificName: "Mahanarva fimbriolata",
		CommonNames:    []string{"Cigarrinha-das-folhas", "Cigarrinha-da-folha", "Mahanarva"},
		Visual: VisualFeatures{
			Colors:  []string{"light brown", "beige", "straw yellow"},
			Size:    Size{Length: "10-13mm", Width: "4-5mm"},
			Shape:   "elongated triangular",
			Texture: "matte and velvety",
			Wings:   "dark spots",
		},
		Habitat:           []string{"leaves", "leaf sheaths", "young stalks"},
		Damage:            []string{"yellow streaks", "leaf drying", "reduced photosynthesis"},
		Season:            []string{"December-May", "hot and humid season"},
		DetectionKeywords: []string{"cigarrinha", "folhas", "mahanarva", "listras"},
		Tiers: KeywordTiers{
			High:   []string{"cigarrinha", "mahanarva", "folhas", "listras"},
			Medium: []string{"marrom-claro", "triangular", "manchas"},
			Low:    []string{"bege", "inseto"},
		},
	},
	{
		ID:             "mosca-branca",
		Name:           "Mosca-branca",
		ScientificName: "Bemisia tabaci",
		CommonNames:    []string{"Mosca-branca", "Bemisia", "Mosca-branca-da-cana"},
		Visual: VisualFeatures{
			Colors:  []string{"white", "pale yellow", "cream"},
			Size:    Size{Length: "1-2mm", Width: "0.5-1mm"},
			Shape:   "small triangular",
			Texture: "waxy and powdery",
			Wings:   "translucent white",
		},
		Habitat:           []string{"leaf undersides", "young leaves"},
		Damage:            []string{"yellowing", "sooty mold", "virus transmission"},
		Season:            []string{"year-round", "dry-season peaks"},
		DetectionKeywords: []string{"mosca", "branca", "bemisia", "pequena"},
		Tiers: KeywordTiers{
			High:   []string{"mosca-branca", "bemisia", "branca"},
			Medium: []string{"branco", "pequena", "triangular"},
			Low:    []string{"clara", "voadora"},
		},
	},
}

var pestIndex = func() map[string]int {
	idx := make(map[string]int, len(pests))
	for i, p := range pests {
		idx[p.ID] = i
	}
	return idx
}()

// Pests returns a copy of every record in knowledge-base order.
func Pests() []PestRecord {
	out := make([]PestRecord, len(pests))
	copy(out, pests)
	return out
}

// Lookup returns the record for id.
func Lookup(id string) (PestRecord, bool) {
	i, ok := pestIndex[id]
	if !ok {
		return PestRecord{}, false
	}
	return pests[i], true
}

// IsKnown reports whether id names a knowledge-base record.
func IsKnown(id string) bool {
	_, ok := pestIndex[id]
	return ok
}
