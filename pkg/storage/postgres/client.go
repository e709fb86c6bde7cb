// Package postgres provides a PostgreSQL implementation of the storage
// Adapter contract.
//
// Unlike the local adapter's whole-collection read-modify-write cycle,
// every operation here is a single SQL statement over one row, so writes
// to distinct records cannot lose each other's effects.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/schoolhub/memorybank/pkg/storage"
)

// Client implements storage.Adapter over PostgreSQL.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains PostgreSQL connection configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
}

// New creates a PostgreSQL adapter client and initializes the table.
func New(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memories"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTable(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			metadata JSONB,
			importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed TIMESTAMPTZ
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: init table: %v", storage.ErrStorageFailure, err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_type ON %s(type)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("%w: init index: %v", storage.ErrStorageFailure, err)
	}

	return nil
}

// Store upserts a memory by id.
func (c *Client) Store(ctx context.Context, memory *storage.Memory) error {
	metadataJSON, err := json.Marshal(memory.Metadata)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", storage.ErrStorageFailure, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, type, created_at, metadata, importance, access_count, last_accessed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			type = EXCLUDED.type,
			created_at = EXCLUDED.created_at,
			metadata = EXCLUDED.metadata,
			importance = EXCLUDED.importance,
			access_count = EXCLUDED.access_count,
			last_accessed = EXCLUDED.last_accessed
	`, c.tableName)

	var lastAccessed interface{}
	if memory.LastAccessed != nil {
		lastAccessed = *memory.LastAccessed
	}

	_, err = c.db.ExecContext(ctx, query,
		memory.ID,
		memory.Content,
		memory.Type,
		memory.Timestamp,
		string(metadataJSON),
		memory.Importance,
		memory.AccessCount,
		lastAccessed,
	)
	if err != nil {
		return fmt.Errorf("%w: store: %v", storage.ErrStorageFailure, err)
	}

	return nil
}

// Retrieve returns the memory with the given id, or storage.ErrNotFound.
func (c *Client) Retrieve(ctx context.Context, id string) (*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT id, content, type, created_at, metadata, importance, access_count, last_accessed
		FROM %s WHERE id = $1
	`, c.tableName)

	memory, err := c.scanMemory(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve: %v", storage.ErrStorageFailure, err)
	}

	return memory, nil
}

// Search filters with SQL WHERE clauses and sorts by priority
// (importance + access_count * 0.1, descending).
func (c *Client) Search(ctx context.Context, query *storage.Query) ([]*storage.Memory, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := fmt.Sprintf(`
		SELECT id, content, type, created_at, metadata, importance, access_count, last_accessed
		FROM %s
		%s
		ORDER BY importance + access_count * 0.1 DESC
	`, c.tableName, whereClause)

	if query != nil && query.Limit > 0 {
		sqlQuery += " LIMIT " + strconv.Itoa(query.Limit)
	}

	rows, err := c.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", storage.ErrStorageFailure, err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := c.scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: search scan: %v", storage.ErrStorageFailure, err)
		}
		memories = append(memories, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search rows: %v", storage.ErrStorageFailure, err)
	}

	return memories, nil
}

// Update patches a single row, preserving id and created_at.
func (c *Client) Update(ctx context.Context, id string, patch *storage.Patch) (*storage.Memory, error) {
	sets := []string{}
	args := []interface{}{}
	idx := 1

	if patch != nil {
		if patch.Content != nil {
			sets = append(sets, fmt.Sprintf("content = $%d", idx))
			args = append(args, *patch.Content)
			idx++
		}
		if patch.Type != nil {
			sets = append(sets, fmt.Sprintf("type = $%d", idx))
			args = append(args, *patch.Type)
			idx++
		}
		if patch.Metadata != nil {
			metadataJSON, err := json.Marshal(patch.Metadata)
			if err != nil {
				return nil, fmt.Errorf("%w: encode metadata: %v", storage.ErrStorageFailure, err)
			}
			sets = append(sets, fmt.Sprintf("metadata = $%d", idx))
			args = append(args, string(metadataJSON))
			idx++
		}
		if patch.Importance != nil {
			sets = append(sets, fmt.Sprintf("importance = $%d", idx))
			args = append(args, *patch.Importance)
			idx++
		}
		if patch.AccessCount != nil {
			sets = append(sets, fmt.Sprintf("access_count = $%d", idx))
			args = append(args, *patch.AccessCount)
			idx++
		}
		if patch.LastAccessed != nil {
			sets = append(sets, fmt.Sprintf("last_accessed = $%d", idx))
			args = append(args, *patch.LastAccessed)
			idx++
		}
	}

	if len(sets) == 0 {
		// Nothing to change; still report absence for unknown ids.
		return c.Retrieve(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		c.tableName, strings.Join(sets, ", "), idx)

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: update: %v", storage.ErrStorageFailure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: update: %v", storage.ErrStorageFailure, err)
	}
	if rowsAffected == 0 {
		return nil, storage.ErrNotFound
	}

	return c.Retrieve(ctx, id)
}

// Delete removes a single row.
func (c *Client) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.tableName)

	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", storage.ErrStorageFailure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete: %v", storage.ErrStorageFailure, err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetAll returns the full collection, newest first.
func (c *Client) GetAll(ctx context.Context) ([]*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT id, content, type, created_at, metadata, importance, access_count, last_accessed
		FROM %s
		ORDER BY created_at DESC
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: get all: %v", storage.ErrStorageFailure, err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := c.scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: get all scan: %v", storage.ErrStorageFailure, err)
		}
		memories = append(memories, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: get all rows: %v", storage.ErrStorageFailure, err)
	}

	return memories, nil
}

// Clear wipes the table.
func (c *Client) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", c.tableName)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: clear: %v", storage.ErrStorageFailure, err)
	}
	return nil
}

// StorageSize reports the total relation size of the backing table.
// Implements the optional storage.Sizer capability.
func (c *Client) StorageSize(ctx context.Context) (int64, error) {
	var size int64
	row := c.db.QueryRowContext(ctx, "SELECT pg_total_relation_size($1)", c.tableName)
	if err := row.Scan(&size); err != nil {
		return 0, fmt.Errorf("%w: storage size: %v", storage.ErrStorageFailure, err)
	}
	return size, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanMemory.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (c *Client) scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var memory storage.Memory
	var metadataStr sql.NullString
	var lastAccessed sql.NullTime

	err := scanner.Scan(
		&memory.ID,
		&memory.Content,
		&memory.Type,
		&memory.Timestamp,
		&metadataStr,
		&memory.Importance,
		&memory.AccessCount,
		&lastAccessed,
	)
	if err != nil {
		return nil, err
	}

	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &memory.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		memory.LastAccessed = &t
	}

	return &memory, nil
}

// buildWhereClause builds a WHERE clause from a storage query.
func buildWhereClause(q *storage.Query) (string, []interface{}) {
	if q == nil {
		return "", nil
	}

	conditions := []string{}
	args := []interface{}{}
	idx := 1

	if q.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", idx))
		args = append(args, q.Type)
		idx++
	}

	if q.MinImportance > 0 {
		conditions = append(conditions, fmt.Sprintf("importance >= $%d", idx))
		args = append(args, q.MinImportance)
		idx++
	}

	if len(q.Keywords) > 0 {
		kwConds := []string{}
		for _, kw := range q.Keywords {
			if kw == "" {
				continue
			}
			kwConds = append(kwConds, fmt.Sprintf("content ILIKE $%d", idx))
			args = append(args, "%"+kw+"%")
			idx++
		}
		if len(kwConds) > 0 {
			conditions = append(conditions, "("+strings.Join(kwConds, " OR ")+")")
		}
	}

	if q.DateRange != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", idx))
		args = append(args, q.DateRange.Start)
		idx++
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", idx))
		args = append(args, q.DateRange.End)
		idx++
	}

	if len(q.Metadata) > 0 {
		metaJSON, err := json.Marshal(q.Metadata)
		if err == nil {
			conditions = append(conditions, fmt.Sprintf("metadata @> $%d::jsonb", idx))
			args = append(args, string(metaJSON))
			idx++
		}
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
