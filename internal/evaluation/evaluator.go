package evaluation

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/embedbench/embed-bench/internal/bus"
	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/dataset"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
	"github.com/embedbench/embed-bench/internal/retriever"
)

// ScoreRecord is the score for one query.
type ScoreRecord struct {
	QueryID string  `json:"query_id"`
	Score   float64 `json:"score"`

	// RetrievedCount is how many documents the retriever returned,
	// before the cutoff is applied.
	RetrievedCount int `json:"retrieved_count"`

	// RelevantCount is the size of the query's relevant set.
	RelevantCount int `json:"relevant_count"`

	// Degenerate marks a query whose relevant set is empty. Such
	// queries score 0 but are not errors.
	Degenerate bool `json:"degenerate,omitempty"`
}

// Summary aggregates one evaluation run.
type Summary struct {
	K          int           `json:"k"`
	QueryCount int           `json:"query_count"`
	MeanNDCG   float64       `json:"mean_ndcg"`
	Records    []ScoreRecord `json:"records"`
}

// Evaluator runs NDCG@k evaluation of a retriever over a query set.
type Evaluator struct {
	k       int
	workers int
	log     *logger.Logger
	bus     bus.Bus
	runID   string
}

// NewEvaluator creates an evaluator from eval settings.
func NewEvaluator(cfg config.EvalConfig, log *logger.Logger) *Evaluator {
	k := cfg.K
	if k <= 0 {
		k = 10
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Evaluator{
		k:       k,
		workers: workers,
		log:     log,
	}
}

// WithBus attaches an event bus; progress events are published per run
// and per scored query.
func (e *Evaluator) WithBus(b bus.Bus, runID string) *Evaluator {
	e.bus = b
	e.runID = runID
	return e
}

// K returns the evaluation cutoff.
func (e *Evaluator) K() int {
	return e.k
}

// Evaluate scores every query against r and returns the run summary.
//
// All queries are checked against the ground truth before any retrieval
// happens, so a missing relevance entry fails the run without spending
// retriever calls. Queries are scored in ascending ID order; a
// retriever failure aborts the whole run. Records in the summary keep
// the sorted query order regardless of worker scheduling.
func (e *Evaluator) Evaluate(ctx context.Context, r retriever.Retriever, queries []dataset.Query, rels dataset.Relevance) (*Summary, error) {
	if len(queries) == 0 {
		return nil, errors.EmptyEvaluationSetError()
	}

	sorted := make([]dataset.Query, len(queries))
	copy(sorted, queries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, q := range sorted {
		if _, ok := rels.Relevant(q.ID); !ok {
			return nil, errors.MissingGroundTruthError(q.ID)
		}
	}

	e.publish(ctx, bus.TopicEvalStarted, map[string]any{
		"k":       e.k,
		"queries": len(sorted),
	})

	if !r.ConcurrentSafe() {
		r = retriever.NewSerialized(r)
	}

	records := make([]ScoreRecord, len(sorted))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, q := range sorted {
		g.Go(func() error {
			rec, err := e.scoreOne(gctx, r, q, rels)
			if err != nil {
				return err
			}

			mu.Lock()
			records[i] = rec
			mu.Unlock()

			e.publish(gctx, bus.TopicEvalQueryScored, rec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total float64
	for _, rec := range records {
		total += rec.Score
	}

	summary := &Summary{
		K:          e.k,
		QueryCount: len(records),
		MeanNDCG:   total / float64(len(records)),
		Records:    records,
	}

	e.publish(ctx, bus.TopicEvalCompleted, map[string]any{
		"k":         summary.K,
		"queries":   summary.QueryCount,
		"mean_ndcg": summary.MeanNDCG,
	})

	e.log.Info("evaluation completed",
		"queries", summary.QueryCount,
		"k", summary.K,
		"mean_ndcg", summary.MeanNDCG)

	return summary, nil
}

func (e *Evaluator) scoreOne(ctx context.Context, r retriever.Retriever, q dataset.Query, rels dataset.Relevance) (ScoreRecord, error) {
	relevant, _ := rels.Relevant(q.ID)

	if len(relevant) == 0 {
		e.log.WithQuery(q.ID).Debug("query has no relevant documents, scoring 0")
		return ScoreRecord{QueryID: q.ID, Degenerate: true}, nil
	}

	docs, err := r.Retrieve(ctx, q.Text, e.k)
	if err != nil {
		return ScoreRecord{}, err
	}

	retrieved := make([]string, len(docs))
	for i, d := range docs {
		retrieved[i] = d.ID
	}

	return ScoreRecord{
		QueryID:        q.ID,
		Score:          ScoreQuery(retrieved, relevant, e.k),
		RetrievedCount: len(docs),
		RelevantCount:  len(relevant),
	}, nil
}

func (e *Evaluator) publish(ctx context.Context, topic string, payload any) {
	if e.bus == nil {
		return
	}
	// Progress events are advisory; a publish failure must not fail the run.
	if err := e.bus.Publish(ctx, topic, bus.NewEvent(e.runID, topic, "evaluator", payload)); err != nil {
		e.log.WithError(err).Warn("publishing evaluation event", "topic", topic)
	}
}
