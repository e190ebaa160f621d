// Package retriever defines the retrieval boundary used during
// evaluation and provides a Qdrant-backed implementation.
package retriever

import (
	"context"
	"fmt"
	"sync"

	"github.com/embedbench/embed-bench/internal/embed"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/qdrant"
)

// ScoredDoc is one ranked retrieval result. Position in the returned
// slice is the rank, highest-scoring first.
type ScoredDoc struct {
	ID    string
	Score float32
}

// Retriever returns the top-k documents for a query text, ranked by
// relevance. Implementations report whether they tolerate concurrent
// calls so the evaluator knows when to serialize.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string, k int) ([]ScoredDoc, error)
	ConcurrentSafe() bool
}

// VectorRetriever embeds the query text and searches a Qdrant
// collection. One instance per strategy, each bound to the collection
// that strategy indexed into.
type VectorRetriever struct {
	provider   embed.Provider
	client     *qdrant.Client
	collection string
}

// NewVectorRetriever creates a retriever over one strategy's collection.
func NewVectorRetriever(provider embed.Provider, client *qdrant.Client, collection string) *VectorRetriever {
	return &VectorRetriever{
		provider:   provider,
		client:     client,
		collection: collection,
	}
}

// Retrieve embeds the query and returns the top-k documents.
func (r *VectorRetriever) Retrieve(ctx context.Context, queryText string, k int) ([]ScoredDoc, error) {
	if k <= 0 {
		return nil, errors.ValidationError(fmt.Sprintf("k must be positive, got %d", k))
	}

	vectors, err := r.provider.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, errors.RetrieverError("embedding query", err)
	}
	if len(vectors) != 1 {
		return nil, errors.RetrieverError(
			fmt.Sprintf("expected 1 query vector, got %d", len(vectors)), nil)
	}

	results, err := r.client.Search(ctx, r.collection, vectors[0], uint64(k))
	if err != nil {
		return nil, errors.RetrieverError("searching collection "+r.collection, err)
	}

	docs := make([]ScoredDoc, 0, len(results))
	for _, res := range results {
		docs = append(docs, ScoredDoc{ID: res.DocID, Score: res.Score})
	}

	return docs, nil
}

// ConcurrentSafe reports true: the embedding client and the Qdrant
// client are both safe for concurrent use.
func (r *VectorRetriever) ConcurrentSafe() bool {
	return true
}

// Serialized wraps a retriever that is not safe for concurrent calls,
// admitting one Retrieve at a time.
type Serialized struct {
	mu    sync.Mutex
	inner Retriever
}

// NewSerialized wraps r in a mutex. If r already reports concurrent
// safety it is returned unchanged.
func NewSerialized(r Retriever) Retriever {
	if r.ConcurrentSafe() {
		return r
	}
	return &Serialized{inner: r}
}

// Retrieve delegates to the wrapped retriever under a lock.
func (s *Serialized) Retrieve(ctx context.Context, queryText string, k int) ([]ScoredDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Retrieve(ctx, queryText, k)
}

// ConcurrentSafe reports true: the lock makes concurrent calls safe.
func (s *Serialized) ConcurrentSafe() bool {
	return true
}
