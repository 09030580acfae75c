// Package qdrant implements the vector.Index port against the Qdrant REST
// API. The client is a plain JSON-over-HTTP wrapper: collection bootstrap
// with cosine distance, payload indexes for filterable fields, idempotent
// point upserts and filtered similarity search.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/finleyapp/finance-advisor/internal/vector"
)

// Client talks to one Qdrant collection.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	http       *http.Client
}

// New creates a client for the given collection. dimension is the embedding
// size used when the collection has to be created.
func New(baseURL, apiKey, collection string, dimension int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		dimension:  dimension,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureCollection creates the collection and its payload indexes when they
// do not exist yet. Safe to call on every startup.
func (c *Client) EnsureCollection(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil)
	if err != nil {
		return fmt.Errorf("EnsureCollection: get collection: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	status, raw, err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body)
	if err != nil {
		return fmt.Errorf("EnsureCollection: create collection: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("EnsureCollection: create collection: status %d: %s", status, raw)
	}

	// Payload indexes make category, date and file filters cheap.
	for field, schema := range map[string]string{
		"category": "keyword",
		"file_id":  "keyword",
		"date_key": "integer",
	} {
		body := map[string]string{"field_name": field, "field_schema": schema}
		status, raw, err := c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/index", body)
		if err != nil {
			return fmt.Errorf("EnsureCollection: index %s: %w", field, err)
		}
		// 4xx here usually means the index already exists.
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("EnsureCollection: index %s: status %d: %s", field, status, raw)
		}
	}
	return nil
}

// Upsert implements vector.Index. Re-sending a point id replaces the stored
// entry.
func (c *Client) Upsert(ctx context.Context, points ...vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	type qp struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload vector.Payload `json:"payload"`
	}
	qps := make([]qp, len(points))
	for i, p := range points {
		qps[i] = qp{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	status, raw, err := c.do(ctx, http.MethodPut,
		"/collections/"+c.collection+"/points?wait=true",
		map[string]interface{}{"points": qps})
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("Upsert: status %d: %s", status, raw)
	}
	return nil
}

// Search implements vector.Index. Qdrant returns cosine similarity directly,
// higher is better, so scores pass through unchanged.
func (c *Client) Search(ctx context.Context, vec []float32, k int, filter *vector.Filter) ([]vector.Hit, error) {
	body := map[string]interface{}{
		"vector":       vec,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	status, raw, err := c.do(ctx, http.MethodPost,
		"/collections/"+c.collection+"/points/search", body)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("Search: status %d: %s", status, raw)
	}

	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload vector.Payload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("Search: decode response: %w", err)
	}

	hits := make([]vector.Hit, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = vector.Hit{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return hits, nil
}

// DeleteByFileID implements vector.Index.
func (c *Client) DeleteByFileID(ctx context.Context, fileID string) error {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []interface{}{
				map[string]interface{}{
					"key":   "file_id",
					"match": map[string]string{"value": fileID},
				},
			},
		},
	}
	status, raw, err := c.do(ctx, http.MethodPost,
		"/collections/"+c.collection+"/points/delete?wait=true", body)
	if err != nil {
		return fmt.Errorf("DeleteByFileID: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("DeleteByFileID: status %d: %s", status, raw)
	}
	return nil
}

// Count implements vector.Index.
func (c *Client) Count(ctx context.Context) (int, error) {
	status, raw, err := c.do(ctx, http.MethodPost,
		"/collections/"+c.collection+"/points/count",
		map[string]bool{"exact": true})
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("Count: status %d: %s", status, raw)
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("Count: decode response: %w", err)
	}
	return resp.Result.Count, nil
}

func buildFilter(f *vector.Filter) map[string]interface{} {
	if f == nil {
		return nil
	}
	var must []interface{}
	if f.Category != "" {
		must = append(must, map[string]interface{}{
			"key":   "category",
			"match": map[string]string{"value": f.Category},
		})
	}
	if f.FileID != "" {
		must = append(must, map[string]interface{}{
			"key":   "file_id",
			"match": map[string]string{"value": f.FileID},
		})
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		rng := map[string]int64{}
		if !f.From.IsZero() {
			rng["gte"] = vector.DateKeyOf(f.From)
		}
		if !f.To.IsZero() {
			rng["lte"] = vector.DateKeyOf(f.To)
		}
		must = append(must, map[string]interface{}{"key": "date_key", "range": rng})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]interface{}{"must": must}
}

// do sends one JSON request and returns the status code and raw body.
// Non-2xx statuses are returned to the caller, not treated as transport
// errors, so callers can distinguish "missing collection" from "down".
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
