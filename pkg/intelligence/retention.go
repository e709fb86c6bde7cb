package intelligence

import (
	"sort"
	"time"

	"github.com/schoolhub/memorybank/pkg/storage"
)

// RetentionScore computes the eviction-ranking value of a memory:
// its importance, plus a tenth of its access count, plus a recency term
// that starts at 1.0 for a brand-new memory and shrinks hyperbolically
// with age in days.
//
// Higher scores mean the memory is more worth keeping.
func RetentionScore(m *storage.Memory, now time.Time) float64 {
	days := now.Sub(m.Timestamp).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return m.Importance + float64(m.AccessCount)*0.1 + 1.0/(1.0+days)
}

// SelectForEviction returns the memories that cleanup should delete to
// bring the collection back under capacity: the lowest-retention-score
// records beyond the keep limit. Returns nil when the collection already
// fits.
func SelectForEviction(memories []*storage.Memory, keep int, now time.Time) []*storage.Memory {
	if keep < 0 {
		keep = 0
	}
	if len(memories) <= keep {
		return nil
	}

	ranked := make([]*storage.Memory, len(memories))
	copy(ranked, memories)

	// Lowest-value memories first.
	sort.SliceStable(ranked, func(i, j int) bool {
		return RetentionScore(ranked[i], now) < RetentionScore(ranked[j], now)
	})

	return ranked[:len(ranked)-keep]
}
