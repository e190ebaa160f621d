package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace namespaces UUIDv5 point IDs derived from document IDs.
var pointNamespace = uuid.MustParse("8f3c1f6e-9f0a-4a57-9d2e-3d6d8b5a4c21")

// PointID returns the deterministic Qdrant point ID for a document ID.
// Dataset IDs are arbitrary strings ("552", "doc-17"), while Qdrant point
// IDs must be UUIDs or integers, so IDs are mapped through UUIDv5.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// UpsertPoints inserts or updates points in a collection.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}

	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if p.DocID == "" {
			return fmt.Errorf("point has empty doc ID")
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("point %s has empty vector", p.DocID)
		}

		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(p.DocID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id": p.DocID,
				"text":   p.Text,
			}),
		})
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collectionName(collection),
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true), // Wait for indexing
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// UpsertPointsBatch upserts points in batches to avoid oversized requests.
func (c *Client) UpsertPointsBatch(ctx context.Context, collection string, points []Point, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100 // Default batch size
	}

	for i := 0; i < len(points); i += batchSize {
		end := i + batchSize
		if end > len(points) {
			end = len(points)
		}

		batch := points[i:end]
		if err := c.UpsertPoints(ctx, collection, batch); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeletePointsByDocIDs deletes the points for specific documents.
func (c *Client) DeletePointsByDocIDs(ctx context.Context, collection string, docIDs []string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}

	if len(docIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	pointIDs := make([]*qdrant.PointId, len(docIDs))
	for i, id := range docIDs {
		pointIDs[i] = qdrant.NewIDUUID(PointID(id))
	}

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collectionName(collection),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: pointIDs,
				},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	return nil
}
