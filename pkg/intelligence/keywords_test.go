package intelligence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolhub/memorybank/pkg/intelligence"
)

func TestExtractKeywords(t *testing.T) {
	text := "exam exam exam study study review the and for"
	keywords := intelligence.ExtractKeywords(text, 2)

	assert.Equal(t, []string{"exam", "study"}, keywords, "frequency order, stop words dropped")
}

func TestExtractKeywordsTiesAlphabetical(t *testing.T) {
	keywords := intelligence.ExtractKeywords("zebra apple", 0)
	assert.Equal(t, []string{"apple", "zebra"}, keywords)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, intelligence.Similarity("math exam friday", "friday math exam"),
		"word order does not matter")
	assert.Equal(t, 0.0, intelligence.Similarity("math exam", "gardening tips"))
	assert.Equal(t, 1.0, intelligence.Similarity("", ""))
	assert.Equal(t, 0.0, intelligence.Similarity("math exam", ""))

	// Two shared out of four total words.
	assert.InDelta(t, 0.5, intelligence.Similarity("math exam friday", "math exam monday"), 1e-9)
}

func TestMergeContents(t *testing.T) {
	assert.Equal(t, "likes coffee", intelligence.MergeContents("likes coffee", "Likes Coffee"),
		"contained text is not appended")
	assert.Equal(t, "likes coffee; prefers tea at night",
		intelligence.MergeContents("likes coffee", "prefers tea at night"))
	assert.Equal(t, "fresh", intelligence.MergeContents("", "fresh"))
	assert.Equal(t, "kept", intelligence.MergeContents("kept", ""))
}

func TestMergeMetadata(t *testing.T) {
	existing := map[string]string{"subject": "math", "level": "basic"}
	incoming := map[string]string{"level": "advanced", "tutor": "ms-lee"}

	merged := intelligence.MergeMetadata(existing, incoming)

	assert.Equal(t, "advanced", merged["level"], "incoming values win")
	assert.Equal(t, "math", merged["subject"])
	assert.Equal(t, "ms-lee", merged["tutor"])

	// Inputs are untouched.
	assert.Equal(t, "basic", existing["level"])

	assert.Nil(t, intelligence.MergeMetadata(nil, nil))
}
