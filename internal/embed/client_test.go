package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
)

func newTestServer(t *testing.T, handler func(req embedRequest) embedResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			http.NotFound(w, r)
			return
		}

		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		json.NewEncoder(w).Encode(handler(req))
	}))
}

func TestClient_Embed(t *testing.T) {
	srv := newTestServer(t, func(req embedRequest) embedResponse {
		out := make([][]float32, len(req.Texts))
		for i := range req.Texts {
			out[i] = []float32{3, 4} // normalizes to (0.6, 0.8)
		}
		return embedResponse{Embeddings: out}
	})
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{
		URL:       srv.URL,
		Dim:       2,
		BatchSize: 32,
	}, "baseline", logger.Default())

	got, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	// L2 normalized: 3/5 = 0.6, 4/5 = 0.8
	if math.Abs(float64(got[0][0])-0.6) > 1e-6 || math.Abs(float64(got[0][1])-0.8) > 1e-6 {
		t.Errorf("got[0] = %v, want [0.6 0.8]", got[0])
	}
}

func TestClient_EmbedBatches(t *testing.T) {
	var batchSizes []int
	srv := newTestServer(t, func(req embedRequest) embedResponse {
		batchSizes = append(batchSizes, len(req.Texts))
		out := make([][]float32, len(req.Texts))
		for i := range req.Texts {
			out[i] = []float32{1, 0}
		}
		return embedResponse{Embeddings: out}
	})
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{
		URL:       srv.URL,
		Dim:       2,
		BatchSize: 2,
	}, "baseline", logger.Default())

	texts := []string{"a", "b", "c", "d", "e"}
	got, err := client.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(got) != 5 {
		t.Errorf("len(got) = %d, want 5", len(got))
	}

	// 5 texts at batch size 2 → batches of 2, 2, 1
	if len(batchSizes) != 3 || batchSizes[0] != 2 || batchSizes[1] != 2 || batchSizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", batchSizes)
	}
}

func TestClient_EmbedEmpty(t *testing.T) {
	client := NewClient(config.EmbeddingConfig{URL: "http://unused"}, "baseline", logger.Default())

	got, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got != nil {
		t.Errorf("Embed(nil) = %v, want nil", got)
	}
}

func TestClient_DimensionMismatch(t *testing.T) {
	srv := newTestServer(t, func(req embedRequest) embedResponse {
		return embedResponse{Embeddings: [][]float32{{1, 2, 3}}}
	})
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{
		URL:       srv.URL,
		Dim:       2,
		BatchSize: 32,
	}, "baseline", logger.Default())

	_, err := client.Embed(context.Background(), []string{"a"})
	if !errors.IsCode(err, errors.CodeEmbed) {
		t.Fatalf("Embed() error = %v, want EMBED_ERROR", err)
	}
}

func TestClient_CountMismatch(t *testing.T) {
	srv := newTestServer(t, func(req embedRequest) embedResponse {
		return embedResponse{Embeddings: [][]float32{}}
	})
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{
		URL:       srv.URL,
		Dim:       2,
		BatchSize: 32,
	}, "baseline", logger.Default())

	_, err := client.Embed(context.Background(), []string{"a"})
	if !errors.IsCode(err, errors.CodeEmbed) {
		t.Fatalf("Embed() error = %v, want EMBED_ERROR", err)
	}
}

func TestClient_ServiceError(t *testing.T) {
	srv := newTestServer(t, func(req embedRequest) embedResponse {
		return embedResponse{Error: "unknown model"}
	})
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{
		URL:       srv.URL,
		BatchSize: 32,
	}, "no-such-model", logger.Default())

	_, err := client.Embed(context.Background(), []string{"a"})
	if !errors.IsCode(err, errors.CodeEmbed) {
		t.Fatalf("Embed() error = %v, want EMBED_ERROR", err)
	}
}

func TestL2Normalize(t *testing.T) {
	got := l2Normalize([]float32{3, 4})
	if math.Abs(float64(got[0])-0.6) > 1e-6 || math.Abs(float64(got[1])-0.8) > 1e-6 {
		t.Errorf("l2Normalize(3,4) = %v, want [0.6 0.8]", got)
	}

	// Zero vector passes through untouched
	zero := l2Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("l2Normalize(0,0) = %v, want [0 0]", zero)
	}
}
