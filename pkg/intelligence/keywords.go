package intelligence

import (
	"sort"
	"strings"
)

// stopWords are common English words excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "she": {}, "that": {}, "this": {},
	"with": {}, "have": {}, "from": {}, "they": {}, "will": {}, "what": {},
	"when": {}, "were": {}, "been": {}, "than": {}, "then": {}, "them": {},
}

// ExtractKeywords returns up to max distinct keywords from the text,
// ordered by descending frequency. Words of length two or less and common
// stop words are skipped. A non-positive max returns all keywords.
func ExtractKeywords(text string, max int) []string {
	words := ContextWords(text)

	freq := make(map[string]int)
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		freq[w]++
	}

	keywords := make([]string, 0, len(freq))
	for w := range freq {
		keywords = append(keywords, w)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] != freq[keywords[j]] {
			return freq[keywords[i]] > freq[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if max > 0 && len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}

// Similarity computes the token Jaccard similarity of two texts: the size
// of the intersection of their word sets divided by the size of the union.
// Returns a value in [0.0, 1.0]; two empty texts are considered identical.
func Similarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range ContextWords(text) {
		set[w] = struct{}{}
	}
	return set
}

// MergeContents combines two memory contents into one, keeping the
// existing text and appending the parts of the new text it does not
// already contain. Identical or fully-contained content is returned as is.
func MergeContents(existing, incoming string) string {
	existing = strings.TrimSpace(existing)
	incoming = strings.TrimSpace(incoming)

	if incoming == "" || strings.Contains(strings.ToLower(existing), strings.ToLower(incoming)) {
		return existing
	}
	if existing == "" {
		return incoming
	}
	return existing + "; " + incoming
}

// MergeMetadata overlays incoming metadata onto existing metadata.
// Incoming values win on key conflicts; neither input map is modified.
func MergeMetadata(existing, incoming map[string]string) map[string]string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}

	merged := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}
