package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Search performs a dense vector search and returns ranked document IDs.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if limit == 0 {
		limit = 10
	}

	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collectionName(collection),
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}

	return scoredPointsToResults(results)
}

// scoredPointsToResults converts Qdrant scored points to SearchResults.
func scoredPointsToResults(points []*qdrant.ScoredPoint) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(points))

	for _, p := range points {
		docID := getStringValue(p.Payload, "doc_id")
		if docID == "" {
			return nil, fmt.Errorf("search result %s has no doc_id payload", p.Id.String())
		}

		results = append(results, SearchResult{
			DocID: docID,
			Score: p.Score,
		})
	}

	return results, nil
}

func getStringValue(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}
