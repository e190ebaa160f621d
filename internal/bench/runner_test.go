package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/dataset"
	"github.com/embedbench/embed-bench/internal/evaluation"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
	"github.com/embedbench/embed-bench/internal/retriever"
)

// rankedRetriever returns a fixed ranking regardless of the query.
type rankedRetriever struct {
	ranking []string
}

func (r rankedRetriever) ConcurrentSafe() bool { return true }

func (r rankedRetriever) Retrieve(ctx context.Context, queryText string, k int) ([]retriever.ScoredDoc, error) {
	out := make([]retriever.ScoredDoc, len(r.ranking))
	for i, id := range r.ranking {
		out[i] = retriever.ScoredDoc{ID: id, Score: float32(len(r.ranking) - i)}
	}
	return out, nil
}

// fakeFactory hands out a preconfigured retriever per strategy name.
type fakeFactory struct {
	retrievers map[string]retriever.Retriever
}

func (f *fakeFactory) RetrieverFor(s config.StrategyConfig) (retriever.Retriever, error) {
	r, ok := f.retrievers[s.Name]
	if !ok {
		return nil, errors.NotFoundError("retriever for " + s.Name)
	}
	return r, nil
}

func benchFixture() ([]config.StrategyConfig, []dataset.Query, dataset.Relevance) {
	strategies := []config.StrategyConfig{
		{Name: "baseline", Model: "baseline", Collection: "baseline_v1"},
		{Name: "nudge", Model: "nudge", Collection: "nudge_v1"},
	}
	queries := []dataset.Query{{ID: "q1", Text: "what is rice"}}
	rels := dataset.Relevance{"q1": {"a": {}}}
	return strategies, queries, rels
}

func newRunner(factory RetrieverFactory) *Runner {
	ev := evaluation.NewEvaluator(config.EvalConfig{K: 10, Workers: 1}, logger.Default())
	return NewRunner(factory, ev, logger.Default())
}

func TestRun_DeltasAgainstBaseline(t *testing.T) {
	strategies, queries, rels := benchFixture()
	factory := &fakeFactory{retrievers: map[string]retriever.Retriever{
		"baseline": rankedRetriever{ranking: []string{"x", "a"}}, // imperfect
		"nudge":    rankedRetriever{ranking: []string{"a", "x"}}, // perfect
	}}

	comparison, err := newRunner(factory).Run(context.Background(), strategies, "baseline", queries, rels)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(comparison.Results) != 2 {
		t.Fatalf("Results = %d, want 2", len(comparison.Results))
	}

	base := comparison.Results[0]
	nudge := comparison.Results[1]

	if base.Name != "baseline" || nudge.Name != "nudge" {
		t.Fatalf("result order = %s, %s, want configured order", base.Name, nudge.Name)
	}

	if base.Delta != 0 {
		t.Errorf("baseline Delta = %f, want 0", base.Delta)
	}

	wantDelta := nudge.Summary.MeanNDCG - base.Summary.MeanNDCG
	if math.Abs(nudge.Delta-wantDelta) > 1e-12 {
		t.Errorf("nudge Delta = %f, want %f", nudge.Delta, wantDelta)
	}
	if nudge.Delta <= 0 {
		t.Errorf("nudge Delta = %f, want positive (it ranks the relevant doc first)", nudge.Delta)
	}
}

func TestRun_NoStrategies(t *testing.T) {
	_, queries, rels := benchFixture()

	_, err := newRunner(&fakeFactory{}).Run(context.Background(), nil, "baseline", queries, rels)
	if !errors.IsValidation(err) {
		t.Fatalf("Run() error = %v, want VALIDATION_ERROR", err)
	}
}

func TestRun_UnknownBaseline(t *testing.T) {
	strategies, queries, rels := benchFixture()
	factory := &fakeFactory{retrievers: map[string]retriever.Retriever{
		"baseline": rankedRetriever{}, "nudge": rankedRetriever{},
	}}

	_, err := newRunner(factory).Run(context.Background(), strategies, "missing", queries, rels)
	if !errors.IsValidation(err) {
		t.Fatalf("Run() error = %v, want VALIDATION_ERROR", err)
	}
}

func TestRun_EvaluationErrorPropagates(t *testing.T) {
	strategies, _, _ := benchFixture()
	factory := &fakeFactory{retrievers: map[string]retriever.Retriever{
		"baseline": rankedRetriever{}, "nudge": rankedRetriever{},
	}}

	// Empty query set comes back as the evaluator's own error
	_, err := newRunner(factory).Run(context.Background(), strategies, "baseline", nil, dataset.Relevance{})
	if !errors.IsEmptyEvaluationSet(err) {
		t.Fatalf("Run() error = %v, want EMPTY_EVALUATION_SET", err)
	}
}

func TestRenderText(t *testing.T) {
	strategies, queries, rels := benchFixture()
	factory := &fakeFactory{retrievers: map[string]retriever.Retriever{
		"baseline": rankedRetriever{ranking: []string{"x", "a"}},
		"nudge":    rankedRetriever{ranking: []string{"a", "x"}},
	}}

	comparison, err := newRunner(factory).Run(context.Background(), strategies, "baseline", queries, rels)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var buf bytes.Buffer
	if err := RenderText(&buf, comparison); err != nil {
		t.Fatalf("RenderText() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"STRATEGY", "baseline", "nudge", "ndcg@10"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJSON_RoundTrips(t *testing.T) {
	strategies, queries, rels := benchFixture()
	factory := &fakeFactory{retrievers: map[string]retriever.Retriever{
		"baseline": rankedRetriever{ranking: []string{"a"}},
		"nudge":    rankedRetriever{ranking: []string{"a"}},
	}}

	comparison, err := newRunner(factory).Run(context.Background(), strategies, "baseline", queries, rels)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var buf bytes.Buffer
	if err := RenderJSON(&buf, comparison); err != nil {
		t.Fatalf("RenderJSON() error = %v", err)
	}

	var decoded Comparison
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if decoded.RunID != comparison.RunID || len(decoded.Results) != 2 {
		t.Errorf("decoded report = %+v, want run %s with 2 results", decoded, comparison.RunID)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, &Comparison{}, "yaml")
	if !errors.IsValidation(err) {
		t.Fatalf("Render() error = %v, want VALIDATION_ERROR", err)
	}
}
