// -----------------------------------------------------------------------
// Qdrant Client - Minimal REST client for the similarity index
// -----------------------------------------------------------------------

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// Client is a minimal REST client to Qdrant assuming cosine distance.
// Every search carries a mandatory exact user_id filter; owner filtering is
// enforced in the query sent to the index, never by post-filtering results.
type Client struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
	logger     arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.VectorStore = (*Client)(nil)

// pointPayload is the stored payload of one embedding record.
type pointPayload struct {
	Text       string               `json:"text"`
	UserID     string               `json:"user_id"`
	DocumentID string               `json:"document_id"`
	ChunkIndex int                  `json:"chunk_index"`
	Metadata   models.ChunkMetadata `json:"metadata"`
}

// NewClient creates a Qdrant client from validated configuration.
func NewClient(cfg common.VectorConfig, logger arbor.ILogger) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// EnsureCollection creates the backing collection if missing. Qdrant
// answers 200 when the collection already exists with the same schema.
func (c *Client) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	if err := c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.url, c.collection), body); err != nil {
		return fmt.Errorf("%w: ensure collection: %w", models.ErrVectorStore, err)
	}
	return nil
}

// Upsert stores one point per chunk. Point IDs are fresh UUIDs (the only ID
// form Qdrant accepts); chunk identity lives in the payload.
func (c *Client) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", models.ErrVectorStore, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		points[i] = map[string]any{
			"id":     common.NewPointID(),
			"vector": vectors[i],
			"payload": pointPayload{
				Text:       chunk.Text,
				UserID:     chunk.UserID,
				DocumentID: chunk.DocumentID,
				ChunkIndex: chunk.Index,
				Metadata:   chunk.Metadata,
			},
		}
	}

	body := map[string]any{"points": points}
	if err := c.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection), body); err != nil {
		return fmt.Errorf("%w: upsert %d points: %w", models.ErrVectorStore, len(points), err)
	}

	c.logger.Debug().
		Int("points", len(points)).
		Str("document_id", chunks[0].DocumentID).
		Msg("Upserted embedding batch")

	return nil
}

// Search runs a nearest-neighbor query restricted to the given owner. The
// user_id filter is part of the request body, so a foreign user's record is
// never a candidate. Results are still verified defensively: a hit tagged
// to another user is an internal-invariant failure.
func (c *Client) Search(ctx context.Context, vector []float32, userID string, limit int) ([]models.ScoredChunk, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "user_id", "match": map[string]any{"value": userID}},
			},
		},
	}

	var resp struct {
		Result []struct {
			Score   float32         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", c.url, c.collection), body, &resp); err != nil {
		return nil, fmt.Errorf("%w: search: %w", models.ErrVectorStore, err)
	}

	results := make([]models.ScoredChunk, 0, len(resp.Result))
	for _, hit := range resp.Result {
		var payload pointPayload
		if err := json.Unmarshal(hit.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: malformed payload: %v", models.ErrVectorStore, err)
		}
		if payload.UserID != userID {
			return nil, fmt.Errorf("%w: search for user %s returned a record owned by %s", models.ErrIsolationViolation, userID, payload.UserID)
		}
		results = append(results, models.ScoredChunk{
			Chunk: models.Chunk{
				DocumentID: payload.DocumentID,
				UserID:     payload.UserID,
				Index:      payload.ChunkIndex,
				Text:       payload.Text,
				Metadata:   payload.Metadata,
			},
			Score: hit.Score,
		})
	}
	return results, nil
}

func (c *Client) putJSON(ctx context.Context, url string, body any) error {
	return c.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
