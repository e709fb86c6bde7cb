// Package local provides a SQLite-backed key-value implementation of the
// storage Adapter contract.
//
// The entire collection is serialized as one JSON document stored under a
// namespace key, matching the host key-value store layout of the portal.
// Every mutating operation is a read-modify-write cycle over that document
// with no isolation: two callers whose operations interleave between the
// read and the write can silently lose one writer's effect. The engine
// assumes a single logical owner per database file; callers needing
// per-record atomicity should use the postgres adapter instead.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/schoolhub/memorybank/pkg/storage"
)

const defaultNamespace = "memory_bank"

// Store implements storage.Adapter over a SQLite key-value table.
type Store struct {
	// db is the SQLite database connection.
	db *sql.DB

	// namespace is the key under which the collection document is stored.
	namespace string
}

// Config contains configuration for creating a local Store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Namespace is the key for the collection document
	// (default: "memory_bank").
	Namespace string
}

// metaRecord is the diagnostics row kept alongside the collection.
type metaRecord struct {
	LastUpdated time.Time `json:"last_updated"`
	SizeBytes   int64     `json:"size_bytes"`
}

// New creates a local Store backed by the SQLite file at cfg.DBPath,
// creating the parent directory and the key-value table if needed.
func New(cfg *Config) (*Store, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("local: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	s := &Store{
		db:        db,
		namespace: namespace,
	}

	if err := s.initTable(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) initTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("local: init table: %w", err)
	}
	return nil
}

// readCollection loads and decodes the full collection document.
// A missing or empty document decodes to an empty collection.
func (s *Store) readCollection(ctx context.Context) ([]*storage.Memory, error) {
	var value string
	row := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", s.namespace)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read collection: %v", storage.ErrStorageFailure, err)
	}

	var memories []*storage.Memory
	if err := json.Unmarshal([]byte(value), &memories); err != nil {
		return nil, fmt.Errorf("%w: parse collection: %v", storage.ErrStorageFailure, err)
	}

	return memories, nil
}

// writeCollection serializes the collection back under the namespace key
// and refreshes the diagnostics meta record.
func (s *Store) writeCollection(ctx context.Context, memories []*storage.Memory) error {
	data, err := json.Marshal(memories)
	if err != nil {
		return fmt.Errorf("%w: encode collection: %v", storage.ErrStorageFailure, err)
	}

	upsert := `
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, upsert, s.namespace, string(data)); err != nil {
		return fmt.Errorf("%w: write collection: %v", storage.ErrStorageFailure, err)
	}

	meta := metaRecord{
		LastUpdated: time.Now(),
		SizeBytes:   int64(len(data)),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode meta: %v", storage.ErrStorageFailure, err)
	}
	if _, err := s.db.ExecContext(ctx, upsert, s.namespace+":meta", string(metaJSON)); err != nil {
		return fmt.Errorf("%w: write meta: %v", storage.ErrStorageFailure, err)
	}

	return nil
}

// Store upserts a memory by id, overwriting an existing record.
func (s *Store) Store(ctx context.Context, memory *storage.Memory) error {
	memories, err := s.readCollection(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, m := range memories {
		if m.ID == memory.ID {
			memories[i] = storage.Clone(memory)
			replaced = true
			break
		}
	}
	if !replaced {
		memories = append(memories, storage.Clone(memory))
	}

	return s.writeCollection(ctx, memories)
}

// Retrieve returns the memory with the given id, or storage.ErrNotFound.
func (s *Store) Retrieve(ctx context.Context, id string) (*storage.Memory, error) {
	memories, err := s.readCollection(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range memories {
		if m.ID == id {
			return storage.Clone(m), nil
		}
	}

	return nil, storage.ErrNotFound
}

// Search filters the collection in memory and returns matches sorted by
// priority (importance + accessCount*0.1, descending), capped at
// query.Limit if given.
func (s *Store) Search(ctx context.Context, query *storage.Query) ([]*storage.Memory, error) {
	memories, err := s.readCollection(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*storage.Memory
	for _, m := range memories {
		if storage.Matches(m, query) {
			matched = append(matched, storage.Clone(m))
		}
	}

	limit := 0
	if query != nil {
		limit = query.Limit
	}
	return storage.SortByPriority(matched, limit), nil
}

// Update merges the patch into the record with the given id, preserving
// its id and original timestamp.
func (s *Store) Update(ctx context.Context, id string, patch *storage.Patch) (*storage.Memory, error) {
	memories, err := s.readCollection(ctx)
	if err != nil {
		return nil, err
	}

	for i, m := range memories {
		if m.ID == id {
			updated := storage.Clone(m)
			storage.ApplyPatch(updated, patch)
			// ID and Timestamp are immutable by contract.
			updated.ID = m.ID
			updated.Timestamp = m.Timestamp
			memories[i] = updated

			if err := s.writeCollection(ctx, memories); err != nil {
				return nil, err
			}
			return storage.Clone(updated), nil
		}
	}

	return nil, storage.ErrNotFound
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	memories, err := s.readCollection(ctx)
	if err != nil {
		return err
	}

	for i, m := range memories {
		if m.ID == id {
			memories = append(memories[:i], memories[i+1:]...)
			return s.writeCollection(ctx, memories)
		}
	}

	return storage.ErrNotFound
}

// GetAll returns the full collection.
func (s *Store) GetAll(ctx context.Context) ([]*storage.Memory, error) {
	memories, err := s.readCollection(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*storage.Memory, len(memories))
	for i, m := range memories {
		out[i] = storage.Clone(m)
	}
	return out, nil
}

// Clear wipes the collection and its meta record.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_store WHERE key = ? OR key = ?",
		s.namespace, s.namespace+":meta")
	if err != nil {
		return fmt.Errorf("%w: clear: %v", storage.ErrStorageFailure, err)
	}
	return nil
}

// StorageSize reports the byte size of the serialized collection from the
// diagnostics meta record. Implements the optional storage.Sizer capability.
func (s *Store) StorageSize(ctx context.Context) (int64, error) {
	var value string
	row := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", s.namespace+":meta")
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read meta: %v", storage.ErrStorageFailure, err)
	}

	var meta metaRecord
	if err := json.Unmarshal([]byte(value), &meta); err != nil {
		return 0, fmt.Errorf("%w: parse meta: %v", storage.ErrStorageFailure, err)
	}

	return meta.SizeBytes, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
