package cmd

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPests_Text(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "pests")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SCIENTIFIC NAME")
	for _, p := range knowledge.Pests() {
		assert.Contains(t, stdout, p.ID)
	}
}

func TestPests_JSONAndYAML(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "pests", "--format", "json")
	require.NoError(t, err)
	var fromJSON []knowledge.PestRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &fromJSON))
	assert.Equal(t, knowledge.Pests(), fromJSON)

	stdout, _, err = execute(t, "pests", "-f", "yaml")
	require.NoError(t, err)
	var fromYAML []knowledge.PestRecord
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &fromYAML))
	require.Len(t, fromYAML, len(fromJSON))
	assert.Equal(t, fromJSON[0].ID, fromYAML[0].ID)
}

func TestPests_Detail(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "pests", "migdolus")
	require.NoError(t, err)
	rec, _ := knowledge.Lookup("migdolus")
	assert.Contains(t, stdout, rec.Name+" ("+rec.ScientificName+")")
	assert.Contains(t, stdout, "Recommendations:")
	recs := knowledge.Recommendations("migdolus")
	require.NotEmpty(t, recs)
	assert.Contains(t, stdout, "1. "+recs[0].Type+": "+recs[0].Description)

	stdout, _, err = execute(t, "pests", "migdolus", "--format", "json")
	require.NoError(t, err)
	var detail struct {
		ID              string                     `json:"id"`
		Recommendations []knowledge.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &detail))
	assert.Equal(t, "migdolus", detail.ID)
	assert.Equal(t, knowledge.Recommendations("migdolus"), detail.Recommendations)
}

func TestPests_Errors(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "pests", "gafanhoto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pest")

	_, _, err = execute(t, "pests", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}
