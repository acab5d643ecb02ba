package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var savedAs = regexp.MustCompile(`Saved \S+ as (\S+)`)

// saveAnalysis analyzes a named photo with --save and returns the entry id.
func saveAnalysis(t *testing.T, dir, name string) string {
	t.Helper()
	photo := writeFieldPhoto(t, dir, name)
	_, stderr, err := execute(t, "analyze", photo, "--save")
	require.NoError(t, err)
	m := savedAs.FindStringSubmatch(stderr)
	require.Len(t, m, 2, "stderr: %s", stderr)
	return m[1]
}

func TestHistory_EmptyList(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No saved analyses.")
}

func TestHistory_Lifecycle(t *testing.T) {
	dir := isolate(t)
	first := saveAnalysis(t, dir, "migdolus_root.png")
	second := saveAnalysis(t, dir, "broca_stalk.png")

	stdout, _, err := execute(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, first)
	assert.Contains(t, stdout, second)
	assert.Contains(t, stdout, "migdolus_root.png")
	assert.Less(t, strings.Index(stdout, second), strings.Index(stdout, first), "newest first")

	stdout, _, err = execute(t, "history", "list", "-n", "1", "--format", "json")
	require.NoError(t, err)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, second, entries[0].ID)

	stdout, _, err = execute(t, "history", "show", first)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ID: "+first)
	assert.Contains(t, stdout, "Migdolus")

	stdout, _, err = execute(t, "history", "report", first)
	require.NoError(t, err)
	assert.Contains(t, stdout, "migdolus_root.png")

	reports := filepath.Join(dir, "reports")
	stdout, _, err = execute(t, "history", "report", first, "-d", reports)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	files, err := filepath.Glob(filepath.Join(reports, "pest-report-*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "migdolus_root.png")

	stdout, _, err = execute(t, "history", "delete", first)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted "+first)

	_, _, err = execute(t, "history", "show", first)
	require.ErrorIs(t, err, history.ErrNotFound)

	stdout, _, err = execute(t, "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted 1 entries")
}

func TestHistory_CustomDatabase(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "field.db")
	photo := writeFieldPhoto(t, dir, "sphenophorus.png")

	_, _, err := execute(t, "analyze", photo, "--save", "--history-db", db)
	require.NoError(t, err)
	assert.FileExists(t, db)

	t.Setenv("CANESCAN_HISTORY_PATH", db)
	stdout, _, err := execute(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sphenophorus.png")
}

func TestHistory_Errors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"clear without confirmation", []string{"history", "clear"}, "without --yes"},
		{"report output and dir", []string{"history", "report", "x", "-o", "a.txt", "-d", "out"}, "mutually exclusive"},
		{"show missing id", []string{"history", "show"}, "accepts 1 arg"},
		{"list bad format", []string{"history", "list", "--format", "csv"}, "invalid output format"},
		{"delete unknown", []string{"history", "delete", "nope"}, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
