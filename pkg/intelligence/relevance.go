// Package intelligence provides the pure scoring and text utilities used
// by the memory bank: relevance ranking, retention scoring for eviction,
// importance heuristics, keyword extraction, and textual similarity.
//
// All functions are stateless and perform no I/O.
package intelligence

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/schoolhub/memorybank/pkg/storage"
)

// Memory types whose relevance score receives a boost: contextual and
// factual memories matter more when assembling a query context.
const typeBoost = 1.5

// ContextWords tokenizes a query context into lowercase words, discarding
// words of length two or less.
func ContextWords(context string) []string {
	fields := strings.FieldsFunc(strings.ToLower(context), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var words []string
	for _, f := range fields {
		if len(f) > 2 {
			words = append(words, f)
		}
	}
	return words
}

// RelevanceScore computes the ranking value of a memory against a set of
// context words at the given instant.
//
// The base score sums, per word, the case-insensitive occurrence count of
// the word in the content multiplied by the memory's importance. The base
// is then boosted by 1.5x for context and fact memories, by a recency
// multiplier that decays linearly to nothing at thirty days of age, and by
// an access-count multiplier capped at +50%.
func RelevanceScore(m *storage.Memory, words []string, now time.Time) float64 {
	content := strings.ToLower(m.Content)

	score := 0.0
	for _, w := range words {
		occurrences := strings.Count(content, w)
		score += float64(occurrences) * m.Importance
	}

	if m.Type == "context" || m.Type == "fact" {
		score *= typeBoost
	}

	days := now.Sub(m.Timestamp).Hours() / 24.0
	recencyBonus := 1.0 - days/30.0
	if recencyBonus < 0 {
		recencyBonus = 0
	}
	score *= 1.0 + recencyBonus

	accessBonus := float64(m.AccessCount) * 0.1
	if accessBonus > 0.5 {
		accessBonus = 0.5
	}
	score *= 1.0 + accessBonus

	return score
}

// RankByRelevance scores all memories against the query context, discards
// zero scorers, and returns the top limit memories in descending score
// order. A non-positive limit returns all scored memories.
func RankByRelevance(memories []*storage.Memory, context string, limit int, now time.Time) []*storage.Memory {
	words := ContextWords(context)

	type scored struct {
		memory *storage.Memory
		score  float64
	}

	var ranked []scored
	for _, m := range memories {
		s := RelevanceScore(m, words, now)
		if s > 0 {
			ranked = append(ranked, scored{memory: m, score: s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := make([]*storage.Memory, len(ranked))
	for i, r := range ranked {
		result[i] = r.memory
	}
	return result
}
