package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/VijayarajParamasivam/PaperMind/document"
	"github.com/VijayarajParamasivam/PaperMind/embeddings"
)

// QdrantStore is a minimal REST client to Qdrant. Point ids are the 1-based
// page numbers; the unit id lives in the payload.
type QdrantStore struct {
	url       string
	apiKey    string
	dimension int
	embedder  embeddings.Embedder
	client    *http.Client
}

type QdrantOptions struct {
	URL       string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

func NewQdrantStore(opts QdrantOptions, embedder embeddings.Embedder) *QdrantStore {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		url:       strings.TrimRight(opts.URL, "/"),
		apiKey:    opts.APIKey,
		dimension: opts.Dimension,
		embedder:  embedder,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *QdrantStore) Drop(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, name), nil)
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call qdrant: %w", err)
	}
	defer resp.Body.Close()

	// Absence of the collection is the common case and counts as success.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE collection %s failed: %s", name, resp.Status)
	}
	return nil
}

func (s *QdrantStore) Create(ctx context.Context, name string) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", s.dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, name), body)
}

func (s *QdrantStore) Add(ctx context.Context, name string, units []document.TextUnit) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder is not configured")
	}

	vectors, err := s.embedder.Embed(ctx, embedInput(units))
	if err != nil {
		return fmt.Errorf("embed units: %w", err)
	}
	if len(vectors) != len(units) {
		return fmt.Errorf("embedding count mismatch: have %d units, %d vectors", len(units), len(vectors))
	}

	points := make([]map[string]any, len(units))
	for i, unit := range units {
		points[i] = map[string]any{
			"id":     unit.Page,
			"vector": vectors[i],
			"payload": map[string]any{
				"unit_id": unit.ID,
				"page":    unit.Page,
				"text":    unit.Text,
			},
		}
	}

	// wait=true makes the upsert synchronous, so a reported success means
	// every point is queryable.
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, name), body)
}

func (s *QdrantStore) Query(ctx context.Context, name, query string, k int) ([]document.TextUnit, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if k <= 0 {
		k = 3
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	req := map[string]any{
		"vector":       vectors[0],
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, name), req, &resp); err != nil {
		return nil, err
	}

	results := make([]document.TextUnit, 0, len(resp.Result))
	for _, r := range resp.Result {
		unit := document.TextUnit{}
		if v, ok := r.Payload["unit_id"].(string); ok {
			unit.ID = v
		}
		if v, ok := r.Payload["page"].(float64); ok {
			unit.Page = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			unit.Text = v
		}
		results = append(results, unit)
	}
	return results, nil
}

func (s *QdrantStore) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *QdrantStore) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal qdrant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call qdrant: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *QdrantStore) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal qdrant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call qdrant: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ Store = (*QdrantStore)(nil)
