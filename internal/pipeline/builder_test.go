package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder().
		WithBlockSize(16).
		WithSuspicionThreshold(30).
		WithMaxCandidates(5).
		WithFilenameMatching(false).
		WithFilenameBoost(0.05, 0.9).
		WithRemote("https://example.test/model/2", "key").
		WithRemoteThresholds(0.4, 0.3).
		WithRemoteTimeout(3 * time.Second)

	cfg := b.Config()
	assert.Equal(t, 16, cfg.Blocks.BlockSize)
	assert.InDelta(t, 30, cfg.Blocks.Threshold, 1e-9)
	assert.Equal(t, 5, cfg.Blocks.MaxCandidates)
	assert.False(t, cfg.MatchFilename)
	assert.InDelta(t, 0.05, cfg.Heuristics.FilenameBoost, 1e-9)
	assert.InDelta(t, 0.9, cfg.Heuristics.BoostCap, 1e-9)
	assert.Equal(t, "https://example.test/model/2", cfg.Remote.Endpoint)
	assert.InDelta(t, 0.4, cfg.Remote.Confidence, 1e-9)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)

	a, err := b.Build()
	require.NoError(t, err)
	assert.True(t, a.RemoteEnabled())
}

func TestBuilder_WithClassifierOverridesRemote(t *testing.T) {
	stub := &stubClassifier{}
	a, err := NewBuilder().WithRemote("", "key").WithClassifier(stub).Build()
	require.NoError(t, err)
	assert.Same(t, stub, a.classifier)
}

func TestBuilder_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Heuristics.WhiteRatio = 2
	_, err := NewBuilder().WithConfig(cfg).Build()
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Blocks.BlockSize = 0
	_, err = NewBuilder().WithConfig(cfg).Build()
	assert.Error(t, err)
}
