// Package index builds per-strategy vector collections from a corpus.
package index

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/embedbench/embed-bench/internal/bus"
	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/dataset"
	"github.com/embedbench/embed-bench/internal/embed"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
	"github.com/embedbench/embed-bench/internal/qdrant"
)

// VectorStore is the slice of the Qdrant client the pipeline needs.
type VectorStore interface {
	CreateCollection(ctx context.Context, cfg qdrant.CollectionConfig) error
	UpsertPointsBatch(ctx context.Context, collection string, points []qdrant.Point, batchSize int) error
}

// Request names the strategy to index under and the corpus to index.
type Request struct {
	Strategy  config.StrategyConfig
	Documents []dataset.Document

	// VectorSize is the embedding dimension for the new collection.
	VectorSize uint64
}

// Result reports one completed indexing run.
type Result struct {
	Strategy  string        `json:"strategy"`
	Documents int           `json:"documents"`
	Batches   int           `json:"batches"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline embeds a corpus with one strategy's provider and upserts the
// vectors into that strategy's collection.
type Pipeline struct {
	provider embed.Provider
	store    VectorStore
	cfg      config.IndexConfig
	log      *logger.Logger
	bus      bus.Bus
	runID    string
}

// NewPipeline creates an indexing pipeline for one strategy.
func NewPipeline(provider embed.Provider, store VectorStore, cfg config.IndexConfig, log *logger.Logger) *Pipeline {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Pipeline{
		provider: provider,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// WithBus attaches an event bus for progress events.
func (p *Pipeline) WithBus(b bus.Bus, runID string) *Pipeline {
	p.bus = b
	p.runID = runID
	return p
}

// Index creates the strategy's collection and indexes every document.
// Batches are embedded and upserted concurrently; any batch failure
// aborts the run.
func (p *Pipeline) Index(ctx context.Context, req Request) (*Result, error) {
	if len(req.Documents) == 0 {
		return nil, errors.IndexingError("no documents to index", nil)
	}
	if req.VectorSize == 0 {
		return nil, errors.IndexingError("vector size is required", nil)
	}

	log := p.log.WithStrategy(req.Strategy.Name)
	start := time.Now()

	if err := p.store.CreateCollection(ctx, qdrant.CollectionConfig{
		Name:       req.Strategy.Collection,
		VectorSize: req.VectorSize,
	}); err != nil {
		return nil, errors.IndexingError("creating collection "+req.Strategy.Collection, err)
	}

	p.publish(ctx, bus.TopicIndexStarted, map[string]any{
		"strategy":  req.Strategy.Name,
		"documents": len(req.Documents),
	})

	var indexed atomic.Int64
	batches := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i := 0; i < len(req.Documents); i += p.cfg.EmbedBatchSize {
		end := i + p.cfg.EmbedBatchSize
		if end > len(req.Documents) {
			end = len(req.Documents)
		}

		batch := req.Documents[i:end]
		batches++

		g.Go(func() error {
			if err := p.indexBatch(gctx, req.Strategy.Collection, batch); err != nil {
				return err
			}

			done := indexed.Add(int64(len(batch)))
			p.publish(gctx, bus.TopicIndexBatch, map[string]any{
				"strategy": req.Strategy.Name,
				"indexed":  done,
				"total":    len(req.Documents),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Strategy:  req.Strategy.Name,
		Documents: len(req.Documents),
		Batches:   batches,
		Duration:  time.Since(start),
	}

	p.publish(ctx, bus.TopicIndexCompleted, result)

	log.Info("indexing completed",
		"documents", result.Documents,
		"batches", result.Batches,
		"duration", result.Duration)

	return result, nil
}

func (p *Pipeline) indexBatch(ctx context.Context, collection string, docs []dataset.Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := p.provider.Embed(ctx, texts)
	if err != nil {
		return errors.IndexingError("embedding batch", err)
	}
	if len(vectors) != len(docs) {
		return errors.IndexingError(
			fmt.Sprintf("embedded %d vectors for %d documents", len(vectors), len(docs)), nil)
	}

	points := make([]qdrant.Point, len(docs))
	for i, d := range docs {
		points[i] = qdrant.Point{
			DocID:  d.ID,
			Vector: vectors[i],
			Text:   d.Text,
		}
	}

	if err := p.store.UpsertPointsBatch(ctx, collection, points, p.cfg.UpsertBatchSize); err != nil {
		return errors.IndexingError("upserting batch", err)
	}

	return nil
}

func (p *Pipeline) publish(ctx context.Context, topic string, payload any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, topic, bus.NewEvent(p.runID, topic, "indexer", payload)); err != nil {
		p.log.WithError(err).Warn("publishing index event", "topic", topic)
	}
}
