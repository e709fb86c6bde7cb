package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/felixgeelhaar/bolt/v3"

	"github.com/schoolhub/memorybank/pkg/intelligence"
	"github.com/schoolhub/memorybank/pkg/storage"
)

// Service implements the memory business logic on top of a storage
// adapter: id assignment, importance handling, access tracking, relevance
// ranking, cleanup, statistics, and export/import.
//
// All methods are safe for concurrent use. Retrieval methods degrade to
// empty results when the adapter fails; mutating methods propagate the
// adapter error wrapped in a BankError.
type Service struct {
	mu      sync.RWMutex
	adapter storage.Adapter
	cfg     *Config
	node    *snowflake.Node
	log     *bolt.Logger
}

// NewService creates a Service from the given configuration. The
// configuration is validated and zero-valued tunables are filled with
// defaults.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, NewBankError("NewService", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewBankError("NewService", err)
	}

	return &Service{
		adapter: cfg.Adapter,
		cfg:     cfg,
		node:    node,
		log:     cfg.Logger,
	}, nil
}

// AddOption customizes a single AddMemory call.
type AddOption func(*addOptions)

type addOptions struct {
	metadata   map[string]string
	importance *float64
}

// WithMetadata attaches caller metadata to the new memory.
func WithMetadata(metadata map[string]string) AddOption {
	return func(o *addOptions) {
		o.metadata = metadata
	}
}

// WithImportance sets an explicit importance, overriding both the
// estimator and the configured default. The value is clamped to [0, 1].
func WithImportance(importance float64) AddOption {
	return func(o *addOptions) {
		o.importance = &importance
	}
}

// AddMemory stores a new memory and returns it with its assigned id and
// creation timestamp.
//
// Importance resolution order: explicit WithImportance, then the
// estimator when EstimateImportance is enabled, then DefaultImportance.
// The final value is always clamped to [0, 1].
//
// When DedupThreshold is configured, a stored memory of the same type
// whose content similarity reaches the threshold absorbs the new one:
// contents are merged, metadata is merged with the new values winning,
// and the higher importance is kept.
//
// Example:
//
//	memory, err := svc.AddMemory(ctx, "Prefers evening reviews",
//	    core.TypePreference,
//	    core.WithImportance(0.8),
//	    core.WithMetadata(map[string]string{"subject": "math"}))
func (s *Service) AddMemory(ctx context.Context, content string, mtype MemoryType, opts ...AddOption) (*Memory, error) {
	if err := intelligence.ValidateContent(content); err != nil {
		return nil, NewBankError("AddMemory", errors.Join(ErrValidation, err))
	}
	if !mtype.Valid() {
		return nil, NewBankError("AddMemory", ErrInvalidType)
	}

	options := &addOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if err := intelligence.ValidateMetadata(options.metadata); err != nil {
		return nil, NewBankError("AddMemory", errors.Join(ErrValidation, err))
	}

	importance := s.cfg.DefaultImportance
	if s.cfg.EstimateImportance {
		importance = s.cfg.Estimator.Estimate(ctx, content, options.metadata)
	}
	if options.importance != nil {
		importance = *options.importance
	}
	importance = intelligence.ClampImportance(importance)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.DedupThreshold > 0 {
		merged, err := s.mergeDuplicate(ctx, content, mtype, options.metadata, importance)
		if err != nil {
			return nil, NewBankError("AddMemory", err)
		}
		if merged != nil {
			return merged, nil
		}
	}

	now := time.Now()
	memory := &Memory{
		ID:         s.node.Generate().String(),
		Content:    content,
		Type:       mtype,
		Timestamp:  now,
		Metadata:   options.metadata,
		Importance: importance,
	}

	if err := s.adapter.Store(ctx, toStorageMemory(memory)); err != nil {
		return nil, NewBankError("AddMemory", err)
	}

	return memory, nil
}

// mergeDuplicate looks for a stored same-type memory similar enough to the
// incoming content and merges the incoming values into it. Returns nil
// when no duplicate is found. Caller holds the write lock.
func (s *Service) mergeDuplicate(ctx context.Context, content string, mtype MemoryType, metadata map[string]string, importance float64) (*Memory, error) {
	all, err := s.adapter.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, candidate := range all {
		if candidate.Type != string(mtype) {
			continue
		}
		if intelligence.Similarity(candidate.Content, content) < s.cfg.DedupThreshold {
			continue
		}

		mergedContent := intelligence.MergeContents(candidate.Content, content)
		mergedMeta := intelligence.MergeMetadata(candidate.Metadata, metadata)
		mergedImportance := candidate.Importance
		if importance > mergedImportance {
			mergedImportance = importance
		}

		patch := &storage.Patch{
			Content:    &mergedContent,
			Metadata:   mergedMeta,
			Importance: &mergedImportance,
		}
		updated, err := s.adapter.Update(ctx, candidate.ID, patch)
		if err != nil {
			return nil, err
		}

		s.log.Info().
			Str("id", candidate.ID).
			Msg("merged near-duplicate memory")

		return fromStorageMemory(updated), nil
	}

	return nil, nil
}

// GetMemory retrieves a memory by id and records the access: the access
// count is incremented and the last-accessed time is set before the
// refreshed record is returned.
//
// A missing id returns (nil, nil). Adapter failures degrade: a warning is
// logged and (nil, nil) is returned.
func (s *Service) GetMemory(ctx context.Context, id string) (*Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.adapter.Retrieve(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		s.log.Warn().Err(err).Str("id", id).Msg("retrieval failed, returning empty result")
		return nil, nil
	}

	accessCount := stored.AccessCount + 1
	now := time.Now()
	patch := &storage.Patch{
		AccessCount:  &accessCount,
		LastAccessed: &now,
	}

	updated, err := s.adapter.Update(ctx, id, patch)
	if err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("access tracking update failed")
		return fromStorageMemory(stored), nil
	}

	return fromStorageMemory(updated), nil
}

// SearchMemories returns memories matching the query, sorted by
// importance plus access bonus (access count times 0.1) descending, then
// limited. A nil query matches everything.
//
// Adapter failures degrade: a warning is logged and an empty slice is
// returned.
func (s *Service) SearchMemories(ctx context.Context, query *Query) ([]*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.adapter.Search(ctx, toStorageQuery(query))
	if err != nil {
		s.log.Warn().Err(err).Msg("search failed, returning empty results")
		return []*Memory{}, nil
	}

	return fromStorageMemories(results), nil
}

// GetRelevantMemories ranks all stored memories against a free-text
// context and returns the strongest matches.
//
// The score combines keyword occurrence weighted by importance, a type
// boost for context and fact memories, a 30-day recency bonus, and an
// access-frequency bonus. Zero-scoring memories never appear. Limit
// defaults to 10 when non-positive.
//
// Adapter failures degrade: a warning is logged and an empty slice is
// returned.
func (s *Service) GetRelevantMemories(ctx context.Context, contextText string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.adapter.GetAll(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("relevance scan failed, returning empty results")
		return []*Memory{}, nil
	}

	ranked := intelligence.RankByRelevance(all, contextText, limit, time.Now())
	return fromStorageMemories(ranked), nil
}

// UpdateMemory applies a partial update to a stored memory and returns
// the updated record. Nil patch fields preserve stored values; the id and
// creation timestamp are never modified.
//
// Returns ErrNotFound when the id is absent.
func (s *Service) UpdateMemory(ctx context.Context, id string, patch *Patch) (*Memory, error) {
	if patch == nil {
		return nil, NewBankError("UpdateMemory", ErrValidation)
	}
	if patch.Content != nil {
		if err := intelligence.ValidateContent(*patch.Content); err != nil {
			return nil, NewBankError("UpdateMemory", errors.Join(ErrValidation, err))
		}
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, NewBankError("UpdateMemory", ErrInvalidType)
	}
	if err := intelligence.ValidateMetadata(patch.Metadata); err != nil {
		return nil, NewBankError("UpdateMemory", errors.Join(ErrValidation, err))
	}
	if patch.Importance != nil {
		clamped := intelligence.ClampImportance(*patch.Importance)
		patch.Importance = &clamped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.adapter.Update(ctx, id, toStoragePatch(patch))
	if err != nil {
		return nil, NewBankError("UpdateMemory", err)
	}

	return fromStorageMemory(updated), nil
}

// DeleteMemory removes a memory by id. Returns ErrNotFound when the id is
// absent.
func (s *Service) DeleteMemory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Delete(ctx, id); err != nil {
		return NewBankError("DeleteMemory", err)
	}
	return nil
}

// CleanupMemories enforces the MaxMemories capacity: when the stored
// count exceeds the ceiling, the lowest-retention memories are evicted
// until the count fits. Retention combines importance, access frequency,
// and age. Returns the number of memories evicted.
//
// Individual delete failures are logged and skipped so one bad record
// does not block the rest of the eviction.
func (s *Service) CleanupMemories(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cleanupLocked(ctx)
}

// cleanupLocked carries the eviction work. Caller holds the write lock.
func (s *Service) cleanupLocked(ctx context.Context) (int, error) {
	all, err := s.adapter.GetAll(ctx)
	if err != nil {
		return 0, NewBankError("CleanupMemories", err)
	}

	victims := intelligence.SelectForEviction(all, s.cfg.MaxMemories, time.Now())
	if len(victims) == 0 {
		return 0, nil
	}

	evicted := 0
	for _, victim := range victims {
		if err := s.adapter.Delete(ctx, victim.ID); err != nil {
			s.log.Warn().Err(err).Str("id", victim.ID).Msg("eviction delete failed, skipping")
			continue
		}
		evicted++
	}

	s.log.Info().
		Int("evicted", evicted).
		Int("max_memories", s.cfg.MaxMemories).
		Msg("cleanup completed")

	return evicted, nil
}

// GetStats summarizes the stored collection: total count, count by type,
// and mean importance. StorageSize is filled only when the adapter
// reports a backing size.
//
// Adapter failures degrade: a warning is logged and zero-valued stats are
// returned.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		MemoriesByType: make(map[MemoryType]int),
	}

	all, err := s.adapter.GetAll(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("stats scan failed, returning empty stats")
		return stats, nil
	}

	total := 0.0
	for _, m := range all {
		stats.MemoriesByType[MemoryType(m.Type)]++
		total += m.Importance
	}
	stats.TotalMemories = len(all)
	if len(all) > 0 {
		stats.AverageImportance = total / float64(len(all))
	}

	if sizer, ok := s.adapter.(storage.Sizer); ok {
		size, err := sizer.StorageSize(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("storage size probe failed")
		} else {
			stats.StorageSize = &size
		}
	}

	return stats, nil
}

// ExportMemories serializes every stored memory to a JSON array.
func (s *Service) ExportMemories(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.adapter.GetAll(ctx)
	if err != nil {
		return nil, NewBankError("ExportMemories", err)
	}

	payload, err := json.MarshalIndent(fromStorageMemories(all), "", "  ")
	if err != nil {
		return nil, NewBankError("ExportMemories", errors.Join(ErrStorageFailure, err))
	}
	return payload, nil
}

// ImportMemories loads memories from a JSON array produced by
// ExportMemories (or a compatible source) and returns the number of
// records stored.
//
// Import is resilient per record: entries missing id, content, or a valid
// type are skipped with a warning, as are entries the adapter rejects.
// Importance values are clamped. A payload that is not a JSON array at
// all returns ErrValidation.
func (s *Service) ImportMemories(ctx context.Context, payload []byte) (int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return 0, NewBankError("ImportMemories", errors.Join(ErrValidation, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imported := 0
	for i, entry := range raw {
		var m Memory
		if err := json.Unmarshal(entry, &m); err != nil {
			s.log.Warn().Err(err).Int("index", i).Msg("skipping unparsable import record")
			continue
		}
		if m.ID == "" || m.Content == "" || !m.Type.Valid() {
			s.log.Warn().Int("index", i).Str("id", m.ID).Msg("skipping incomplete import record")
			continue
		}
		m.Importance = intelligence.ClampImportance(m.Importance)
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}

		if err := s.adapter.Store(ctx, toStorageMemory(&m)); err != nil {
			s.log.Warn().Err(err).Str("id", m.ID).Msg("skipping import record rejected by storage")
			continue
		}
		imported++
	}

	s.log.Info().Int("imported", imported).Int("total", len(raw)).Msg("import completed")
	return imported, nil
}

// ClearMemories removes every stored memory.
func (s *Service) ClearMemories(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Clear(ctx); err != nil {
		return NewBankError("ClearMemories", err)
	}
	return nil
}

// Close releases the underlying storage adapter.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Close(); err != nil {
		return NewBankError("Close", err)
	}
	return nil
}
