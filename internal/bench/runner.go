// Package bench compares embedding strategies by evaluating each one's
// retrieval quality over the same query set.
package bench

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/dataset"
	"github.com/embedbench/embed-bench/internal/embed"
	"github.com/embedbench/embed-bench/internal/evaluation"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
	"github.com/embedbench/embed-bench/internal/qdrant"
	"github.com/embedbench/embed-bench/internal/retriever"
)

// StrategyResult is one strategy's evaluation outcome.
type StrategyResult struct {
	Name    string              `json:"name"`
	Summary *evaluation.Summary `json:"summary"`

	// Delta is the mean NDCG difference against the baseline strategy.
	// Zero for the baseline itself.
	Delta float64 `json:"delta"`
}

// Comparison is the outcome of one benchmark run across all strategies.
type Comparison struct {
	RunID     string           `json:"run_id"`
	K         int              `json:"k"`
	Baseline  string           `json:"baseline"`
	Results   []StrategyResult `json:"results"`
	Timestamp time.Time        `json:"timestamp"`
}

// RetrieverFactory builds the retriever for one strategy.
type RetrieverFactory interface {
	RetrieverFor(strategy config.StrategyConfig) (retriever.Retriever, error)
}

// VectorRetrieverFactory builds Qdrant-backed retrievers sharing one
// embedding cache across strategies. Cache keys carry the model name,
// so sharing is safe.
type VectorRetrieverFactory struct {
	embedCfg config.EmbeddingConfig
	client   *qdrant.Client
	cache    embed.Cache
	log      *logger.Logger
}

// NewVectorRetrieverFactory creates the production retriever factory.
func NewVectorRetrieverFactory(embedCfg config.EmbeddingConfig, client *qdrant.Client, cache embed.Cache, log *logger.Logger) *VectorRetrieverFactory {
	return &VectorRetrieverFactory{
		embedCfg: embedCfg,
		client:   client,
		cache:    cache,
		log:      log,
	}
}

// RetrieverFor builds a retriever over the strategy's collection.
func (f *VectorRetrieverFactory) RetrieverFor(strategy config.StrategyConfig) (retriever.Retriever, error) {
	provider := embed.NewCached(embed.NewClient(f.embedCfg, strategy.Model, f.log), f.cache)
	return retriever.NewVectorRetriever(provider, f.client, strategy.Collection), nil
}

// Runner evaluates every configured strategy and reports deltas against
// the baseline.
type Runner struct {
	factory   RetrieverFactory
	evaluator *evaluation.Evaluator
	log       *logger.Logger
}

// NewRunner creates a benchmark runner.
func NewRunner(factory RetrieverFactory, evaluator *evaluation.Evaluator, log *logger.Logger) *Runner {
	return &Runner{
		factory:   factory,
		evaluator: evaluator,
		log:       log,
	}
}

// Run evaluates each strategy over the same queries and ground truth.
// Strategies keep their configured order in the results; the baseline
// must be one of them. Strategies are evaluated sequentially so their
// retrieval load does not interleave, keeping per-strategy timings
// comparable.
func (r *Runner) Run(ctx context.Context, strategies []config.StrategyConfig, baseline string, queries []dataset.Query, rels dataset.Relevance) (*Comparison, error) {
	if len(strategies) == 0 {
		return nil, errors.ValidationError("no strategies configured")
	}

	baselineIdx := -1
	for i, s := range strategies {
		if s.Name == baseline {
			baselineIdx = i
		}
	}
	if baselineIdx < 0 {
		return nil, errors.ValidationError("baseline strategy " + baseline + " is not configured")
	}

	comparison := &Comparison{
		RunID:     uuid.NewString(),
		K:         r.evaluator.K(),
		Baseline:  baseline,
		Timestamp: time.Now().UTC(),
	}

	for _, strategy := range strategies {
		log := r.log.WithStrategy(strategy.Name)
		log.Info("evaluating strategy", "collection", strategy.Collection)

		ret, err := r.factory.RetrieverFor(strategy)
		if err != nil {
			return nil, errors.Wrap(errors.CodeInternal, "building retriever for "+strategy.Name, err)
		}

		summary, err := r.evaluator.Evaluate(ctx, ret, queries, rels)
		if err != nil {
			return nil, err
		}

		comparison.Results = append(comparison.Results, StrategyResult{
			Name:    strategy.Name,
			Summary: summary,
		})
	}

	base := comparison.Results[baselineIdx].Summary.MeanNDCG
	for i := range comparison.Results {
		comparison.Results[i].Delta = comparison.Results[i].Summary.MeanNDCG - base
	}

	return comparison, nil
}
