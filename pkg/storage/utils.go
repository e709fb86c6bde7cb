package storage

import (
	"sort"
	"strings"
)

// Matches reports whether a memory satisfies every field of the query.
//
// Fields combine with AND semantics; the Keywords field matches if the
// content contains any one of the keywords, case-insensitively. The Limit
// field is ignored here and must be applied after sorting.
func Matches(m *Memory, q *Query) bool {
	if q == nil {
		return true
	}

	if q.Type != "" && m.Type != q.Type {
		return false
	}

	if m.Importance < q.MinImportance {
		return false
	}

	if len(q.Keywords) > 0 {
		content := strings.ToLower(m.Content)
		found := false
		for _, kw := range q.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(content, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if q.DateRange != nil {
		if m.Timestamp.Before(q.DateRange.Start) || m.Timestamp.After(q.DateRange.End) {
			return false
		}
	}

	for k, v := range q.Metadata {
		if m.Metadata[k] != v {
			return false
		}
	}

	return true
}

// Priority is the default search ordering value for a memory:
// importance plus a tenth of the access count.
func Priority(m *Memory) float64 {
	return m.Importance + float64(m.AccessCount)*0.1
}

// SortByPriority sorts memories in place, highest priority first, and
// returns the slice truncated to limit (0 means no limit).
func SortByPriority(memories []*Memory, limit int) []*Memory {
	sort.SliceStable(memories, func(i, j int) bool {
		return Priority(memories[i]) > Priority(memories[j])
	})

	if limit > 0 && len(memories) > limit {
		return memories[:limit]
	}

	return memories
}

// ApplyPatch merges a patch into a memory, preserving its ID and original
// timestamp. Nil patch fields leave the corresponding record fields intact.
func ApplyPatch(m *Memory, p *Patch) {
	if p == nil {
		return
	}

	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Metadata != nil {
		m.Metadata = p.Metadata
	}
	if p.Importance != nil {
		m.Importance = *p.Importance
	}
	if p.AccessCount != nil {
		m.AccessCount = *p.AccessCount
	}
	if p.LastAccessed != nil {
		m.LastAccessed = p.LastAccessed
	}
}

// Clone returns a deep copy of a memory record.
func Clone(m *Memory) *Memory {
	cp := *m
	if m.Metadata != nil {
		cp.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	if m.LastAccessed != nil {
		t := *m.LastAccessed
		cp.LastAccessed = &t
	}
	return &cp
}
