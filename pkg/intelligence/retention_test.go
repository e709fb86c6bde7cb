package intelligence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schoolhub/memorybank/pkg/intelligence"
	"github.com/schoolhub/memorybank/pkg/storage"
)

func TestRetentionScoreComponents(t *testing.T) {
	now := time.Now()

	fresh := &storage.Memory{Importance: 0.5, Timestamp: now}
	assert.InDelta(t, 1.5, intelligence.RetentionScore(fresh, now), 1e-9,
		"brand-new memory gets the full recency term")

	aged := &storage.Memory{Importance: 0.5, Timestamp: now.AddDate(0, 0, -9)}
	assert.InDelta(t, 0.6, intelligence.RetentionScore(aged, now), 1e-6)

	accessed := &storage.Memory{Importance: 0.5, Timestamp: now.AddDate(0, 0, -9), AccessCount: 3}
	assert.InDelta(t, 0.9, intelligence.RetentionScore(accessed, now), 1e-6,
		"each access adds 0.1")
}

func TestSelectForEvictionNilWhenFits(t *testing.T) {
	now := time.Now()
	memories := []*storage.Memory{
		{ID: "a", Timestamp: now},
		{ID: "b", Timestamp: now},
	}

	assert.Nil(t, intelligence.SelectForEviction(memories, 2, now))
	assert.Nil(t, intelligence.SelectForEviction(nil, 0, now))
}

func TestSelectForEvictionDropsLowestScores(t *testing.T) {
	now := time.Now()
	old := now.AddDate(0, -2, 0)

	memories := []*storage.Memory{
		{ID: "low", Importance: 0.1, Timestamp: old},
		{ID: "high", Importance: 0.9, Timestamp: old},
		{ID: "mid", Importance: 0.5, Timestamp: old},
	}

	victims := intelligence.SelectForEviction(memories, 1, now)
	assert.Len(t, victims, 2)
	assert.Equal(t, "low", victims[0].ID, "lowest retention evicted first")
	assert.Equal(t, "mid", victims[1].ID)
}

func TestSelectForEvictionKeepZeroEvictsAll(t *testing.T) {
	now := time.Now()
	memories := []*storage.Memory{
		{ID: "a", Timestamp: now},
		{ID: "b", Timestamp: now},
	}

	victims := intelligence.SelectForEviction(memories, 0, now)
	assert.Len(t, victims, 2)
}
