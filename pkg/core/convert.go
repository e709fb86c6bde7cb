package core

import (
	"github.com/schoolhub/memorybank/pkg/storage"
)

// Conversion helpers between the public core types and the storage-layer
// types. The two sets of types are kept separate so that storage adapters
// do not import the core package.

func toStorageMemory(m *Memory) *storage.Memory {
	if m == nil {
		return nil
	}
	return &storage.Memory{
		ID:           m.ID,
		Content:      m.Content,
		Type:         string(m.Type),
		Timestamp:    m.Timestamp,
		Metadata:     m.Metadata,
		Importance:   m.Importance,
		AccessCount:  m.AccessCount,
		LastAccessed: m.LastAccessed,
	}
}

func fromStorageMemory(m *storage.Memory) *Memory {
	if m == nil {
		return nil
	}
	return &Memory{
		ID:           m.ID,
		Content:      m.Content,
		Type:         MemoryType(m.Type),
		Timestamp:    m.Timestamp,
		Metadata:     m.Metadata,
		Importance:   m.Importance,
		AccessCount:  m.AccessCount,
		LastAccessed: m.LastAccessed,
	}
}

func fromStorageMemories(memories []*storage.Memory) []*Memory {
	result := make([]*Memory, 0, len(memories))
	for _, m := range memories {
		result = append(result, fromStorageMemory(m))
	}
	return result
}

func toStorageQuery(q *Query) *storage.Query {
	if q == nil {
		return nil
	}
	sq := &storage.Query{
		Type:          string(q.Type),
		MinImportance: q.MinImportance,
		Keywords:      q.Keywords,
		Metadata:      q.Metadata,
		Limit:         q.Limit,
	}
	if q.DateRange != nil {
		sq.DateRange = &storage.DateRange{
			Start: q.DateRange.Start,
			End:   q.DateRange.End,
		}
	}
	return sq
}

func toStoragePatch(p *Patch) *storage.Patch {
	if p == nil {
		return nil
	}
	sp := &storage.Patch{
		Content:      p.Content,
		Metadata:     p.Metadata,
		Importance:   p.Importance,
		AccessCount:  p.AccessCount,
		LastAccessed: p.LastAccessed,
	}
	if p.Type != nil {
		t := string(*p.Type)
		sp.Type = &t
	}
	return sp
}
