// Package qdrant provides a wrapper around the Qdrant Go client
// with simplified APIs for benchmark collections.
package qdrant

// CollectionConfig defines the configuration for creating a Qdrant collection.
type CollectionConfig struct {
	// Name is the collection name (will be prefixed, see CollectionPrefix).
	Name string

	// VectorSize is the dimension of the dense vectors.
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool
}

// DefaultCollectionConfig returns sensible defaults for a benchmark collection.
func DefaultCollectionConfig(name string, vectorSize uint64) CollectionConfig {
	return CollectionConfig{
		Name:          name,
		VectorSize:    vectorSize,
		OnDiskPayload: true,
	}
}

// Point represents a point to upsert into Qdrant.
type Point struct {
	// DocID is the dataset document identifier. The Qdrant point ID is
	// derived from it deterministically.
	DocID string

	// Vector is the document embedding.
	Vector []float32

	// Text is the document text, stored as payload.
	Text string
}

// SearchResult represents a single search result.
type SearchResult struct {
	// DocID is the dataset document identifier from the point payload.
	DocID string

	// Score is the similarity score assigned by Qdrant.
	Score float32
}

// CollectionInfo contains information about a collection.
type CollectionInfo struct {
	// Name is the collection name (without prefix).
	Name string

	// PointsCount is the total number of points.
	PointsCount uint64

	// Status is the collection health status.
	Status string
}
