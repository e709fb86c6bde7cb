package intelligence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolhub/memorybank/pkg/intelligence"
)

func TestEstimateRuleBaseline(t *testing.T) {
	est := intelligence.NewEstimator(nil, "")

	score := est.Estimate(context.Background(), "short note", nil)
	assert.InDelta(t, 0.3, score, 1e-9, "plain short content keeps the base score")
}

func TestEstimateKeywordsRaiseScore(t *testing.T) {
	est := intelligence.NewEstimator(nil, "")
	ctx := context.Background()

	plain := est.Estimate(ctx, "went for a walk", nil)
	urgent := est.Estimate(ctx, "urgent deadline for the exam!", nil)

	assert.Greater(t, urgent, plain)
}

func TestEstimateMetadataPriority(t *testing.T) {
	est := intelligence.NewEstimator(nil, "")
	ctx := context.Background()

	base := est.Estimate(ctx, "note", nil)
	high := est.Estimate(ctx, "note", map[string]string{"priority": "high"})
	medium := est.Estimate(ctx, "note", map[string]string{"priority": "medium"})

	assert.InDelta(t, base+0.2, high, 1e-9)
	assert.InDelta(t, base+0.1, medium, 1e-9)
}

func TestEstimateNeverExceedsOne(t *testing.T) {
	est := intelligence.NewEstimator(nil, "")

	content := "important critical urgent remember deadline exam assignment " +
		"due grade preference always never must! This is a deliberately " +
		"long note to pick up the length bonus as well."
	score := est.Estimate(context.Background(), content, map[string]string{"priority": "high"})

	assert.LessOrEqual(t, score, 1.0)
	assert.Greater(t, score, 0.9)
}

func TestClampImportance(t *testing.T) {
	assert.Equal(t, 0.0, intelligence.ClampImportance(-0.5))
	assert.Equal(t, 1.0, intelligence.ClampImportance(1.5))
	assert.Equal(t, 0.7, intelligence.ClampImportance(0.7))
}

func TestValidateContent(t *testing.T) {
	assert.NoError(t, intelligence.ValidateContent("something"))
	assert.ErrorIs(t, intelligence.ValidateContent("   "), intelligence.ErrEmptyContent)
	assert.ErrorIs(t, intelligence.ValidateContent(""), intelligence.ErrEmptyContent)
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, intelligence.ValidateMetadata(nil))
	assert.NoError(t, intelligence.ValidateMetadata(map[string]string{"k": "v"}))
	assert.ErrorIs(t, intelligence.ValidateMetadata(map[string]string{" ": "v"}),
		intelligence.ErrEmptyMetadataKey)
}
