package knowledge

import "strings"

// remoteLabels maps classes reported by the remote detector to pest ids.
var remoteLabels = map[string]string{
	"caterpillar":     "broca-da-cana",
	"armyworm":        "broca-da-cana",
	"borer":           "broca-da-cana",
	"sugarcane_borer": "broca-da-cana",
	"diatraea":        "broca-da-cana",
	"lagarta":         "broca-da-cana",

	"spittlebug":      "cigarrinha-das-raizes",
	"spittle_bug":     "cigarrinha-das-raizes",
	"froghopper":      "cigarrinha-das-raizes",
	"root_spittlebug": "cigarrinha-das-raizes",

	"leafhopper":      "cigarrinha-das-folhas",
	"leaf_spittlebug": "cigarrinha-das-folhas",
	"mahanarva":       "cigarrinha-das-folhas",

	"weevil":       "bicudo-da-cana",
	"beetle":       "bicudo-da-cana",
	"billbug":      "bicudo-da-cana",
	"sphenophorus": "bicudo-da-cana",

	"migdolus":   "migdolus",
	"white_grub": "migdolus",
	"grub":       "migdolus",

	"whitefly":  "mosca-branca",
	"white_fly": "mosca-branca",
	"bemisia":   "mosca-branca",
}

// ResolveLabel maps a remote class label to a pest id. Knowledge-base ids
// resolve to themselves. Unmapped labels return UnknownPestID and false.
func ResolveLabel(label string) (string, bool) {
	raw := strings.ToLower(strings.TrimSpace(label))
	if IsKnown(raw) {
		return raw, true
	}
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(raw)
	if id, ok := remoteLabels[key]; ok {
		return id, true
	}
	return UnknownPestID, false
}
