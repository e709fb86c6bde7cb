// Package remote provides an HTTP implementation of the storage Adapter
// contract against a memory service exposing a REST collection API.
//
// Each adapter operation is one request with a configurable per-request
// timeout. A missing resource is reported through storage.ErrNotFound
// (taken from the 404 status), a timed-out request through
// storage.ErrTimeout, and any other non-success status through
// storage.ErrStorageFailure. There is no built-in retry; a caller needing
// resilience must wrap calls itself.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/schoolhub/memorybank/pkg/storage"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultHealthTimeout = 2 * time.Second
)

// Client implements storage.Adapter over HTTP.
type Client struct {
	// client is the HTTP client for API requests.
	client *http.Client

	// baseURL is the base URL of the memory service.
	baseURL string

	// token is the optional bearer credential sent with every request.
	token string

	// timeout is the per-request timeout.
	timeout time.Duration
}

// Config contains configuration for creating a remote Client.
type Config struct {
	// BaseURL is the base URL of the memory service (required).
	BaseURL string

	// Token is an optional bearer credential.
	Token string

	// Timeout is the per-request timeout (default: 10s).
	Timeout time.Duration

	// HTTPClient is a custom HTTP client (uses default if nil).
	HTTPClient *http.Client
}

// patchPayload is the wire form of a partial update. Absent fields are
// omitted so the server preserves them.
type patchPayload struct {
	Content      *string           `json:"content,omitempty"`
	Type         *string           `json:"type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Importance   *float64          `json:"importance,omitempty"`
	AccessCount  *int              `json:"access_count,omitempty"`
	LastAccessed *time.Time        `json:"last_accessed,omitempty"`
}

// New creates a remote adapter client.
func New(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Client{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
	}, nil
}

// do sends one request with the configured timeout and decodes the
// response body into out (if out is non-nil and the body is non-empty).
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", storage.ErrStorageFailure, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", storage.ErrStorageFailure, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", storage.ErrStorageFailure, resp.StatusCode, string(msg))
	}

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read response: %v", storage.ErrStorageFailure, err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("%w: decode response: %v", storage.ErrStorageFailure, err)
			}
		}
	}

	return nil
}

// classifyTransportError maps a transport-level failure onto the adapter
// error taxonomy. Deadline expiry becomes ErrTimeout.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", storage.ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", storage.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", storage.ErrStorageFailure, err)
}

// Store upserts a memory via POST /memories.
func (c *Client) Store(ctx context.Context, memory *storage.Memory) error {
	return c.do(ctx, http.MethodPost, "/memories", memory, nil)
}

// Retrieve fetches a memory via GET /memories/{id}. A 404 maps to
// storage.ErrNotFound rather than a failure.
func (c *Client) Retrieve(ctx context.Context, id string) (*storage.Memory, error) {
	var memory storage.Memory
	if err := c.do(ctx, http.MethodGet, "/memories/"+url.PathEscape(id), nil, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

// Search queries the service via GET /memories/search with the query
// encoded as URL parameters. The server sorts and limits the results.
func (c *Client) Search(ctx context.Context, query *storage.Query) ([]*storage.Memory, error) {
	params := url.Values{}
	if query != nil {
		if query.Type != "" {
			params.Set("type", query.Type)
		}
		if query.MinImportance > 0 {
			params.Set("minImportance", strconv.FormatFloat(query.MinImportance, 'f', -1, 64))
		}
		if len(query.Keywords) > 0 {
			params.Set("keywords", strings.Join(query.Keywords, ","))
		}
		if query.DateRange != nil {
			params.Set("startDate", query.DateRange.Start.Format(time.RFC3339))
			params.Set("endDate", query.DateRange.End.Format(time.RFC3339))
		}
		if len(query.Metadata) > 0 {
			meta, err := json.Marshal(query.Metadata)
			if err != nil {
				return nil, fmt.Errorf("%w: encode metadata filter: %v", storage.ErrStorageFailure, err)
			}
			params.Set("metadata", string(meta))
		}
		if query.Limit > 0 {
			params.Set("limit", strconv.Itoa(query.Limit))
		}
	}

	path := "/memories/search"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var memories []*storage.Memory
	if err := c.do(ctx, http.MethodGet, path, nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// Update patches a memory via PATCH /memories/{id}.
func (c *Client) Update(ctx context.Context, id string, patch *storage.Patch) (*storage.Memory, error) {
	payload := patchPayload{}
	if patch != nil {
		payload = patchPayload{
			Content:      patch.Content,
			Type:         patch.Type,
			Metadata:     patch.Metadata,
			Importance:   patch.Importance,
			AccessCount:  patch.AccessCount,
			LastAccessed: patch.LastAccessed,
		}
	}

	var memory storage.Memory
	if err := c.do(ctx, http.MethodPatch, "/memories/"+url.PathEscape(id), payload, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

// Delete removes a memory via DELETE /memories/{id}.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/memories/"+url.PathEscape(id), nil, nil)
}

// GetAll lists the full collection via GET /memories.
func (c *Client) GetAll(ctx context.Context) ([]*storage.Memory, error) {
	var memories []*storage.Memory
	if err := c.do(ctx, http.MethodGet, "/memories", nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// Clear wipes the collection via DELETE /memories.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/memories", nil, nil)
}

// StorageSize reports the service-side collection size via
// GET /memories/stats. Implements the optional storage.Sizer capability.
func (c *Client) StorageSize(ctx context.Context) (int64, error) {
	var stats struct {
		SizeBytes int64 `json:"size_bytes"`
	}
	if err := c.do(ctx, http.MethodGet, "/memories/stats", nil, &stats); err != nil {
		return 0, err
	}
	return stats.SizeBytes, nil
}

// Health probes the service liveness endpoint with a short timeout.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", storage.ErrStorageFailure, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", storage.ErrStorageFailure, resp.StatusCode)
	}
	return nil
}

// Close is retained for interface compatibility; HTTP clients do not need
// explicit closing.
func (c *Client) Close() error {
	return nil
}
