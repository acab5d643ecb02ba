package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func resultFor(id string, confidence float64) *pipeline.AnalysisResult {
	rec, _ := knowledge.Lookup(id)
	return &pipeline.AnalysisResult{
		PestID:           id,
		PestName:         rec.Name,
		ScientificName:   rec.ScientificName,
		Description:      rec.Description(),
		Confidence:       confidence,
		InfestationLevel: pipeline.InfestationFor(confidence),
		BoundingBox:      &pipeline.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4},
		Source:           pipeline.SourceFile,
		Recommendations:  knowledge.Recommendations(id),
		AnalysisMethod:   "Filename analysis",
		AllDetections: []pipeline.Detection{
			{PestID: id, Name: rec.Name, Confidence: confidence, Source: pipeline.SourceFile},
		},
		ImageWidth:  200,
		ImageHeight: 150,
	}
}

func TestStore_AppendAndGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	res := resultFor("broca-da-cana", 0.9)

	e, err := s.Append(ctx, "lagarta.jpg", res)
	require.NoError(t, err)
	_, err = uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "lagarta.jpg", e.Filename)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, *res, got.Result, "result round-trips verbatim")
	assert.WithinDuration(t, e.CreatedAt, got.CreatedAt, time.Second)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	var ids []string
	for _, id := range []string{"broca-da-cana", "migdolus", "mosca-branca"} {
		e, err := s.Append(ctx, id+".jpg", resultFor(id, 0.7))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[1], all[1].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "mosca-branca", limited[0].Result.PestID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_NotFound(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	a, err := s.Append(ctx, "a.jpg", resultFor("broca-da-cana", 0.5))
	require.NoError(t, err)
	_, err = s.Append(ctx, "b.jpg", resultFor("mosca-branca", 0.5))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	e, err := s.Append(ctx, "x.png", resultFor("migdolus", 0.8))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "migdolus", got.Result.PestID)
}

func TestStore_Invalid(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)

	s := openMemory(t)
	_, err = s.Append(context.Background(), "x", nil)
	require.Error(t, err)
}
