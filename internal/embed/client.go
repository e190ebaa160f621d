package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
	"golang.org/x/time/rate"
)

// Client is an HTTP client for an external embedding service.
type Client struct {
	baseURL   string
	model     string
	dim       int
	batchSize int
	limiter   *rate.Limiter
	http      *http.Client
	log       *logger.Logger
}

// NewClient creates a new embedding service client for one model.
func NewClient(cfg config.EmbeddingConfig, model string, log *logger.Logger) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:   cfg.URL,
		model:     model,
		dim:       cfg.Dim,
		batchSize: batchSize,
		limiter:   limiter,
		http:      &http.Client{Timeout: timeout},
		log:       log,
	}
}

// Model returns the model name this client embeds with.
func (c *Client) Model() string {
	return c.model
}

// embedRequest is the embedding service request body.
type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// embedResponse is the embedding service response body.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed generates embeddings for texts.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]
		embeddings, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.EmbedError("rate limiter wait", err)
		}
	}

	body, err := json.Marshal(embedRequest{
		Model: c.model,
		Texts: texts,
	})
	if err != nil {
		return nil, errors.EmbedError("marshaling embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, errors.EmbedError("building embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.EmbedError("calling embedding service", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.EmbedError("reading embed response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.EmbedError(
			fmt.Sprintf("embedding service returned status %d", resp.StatusCode), nil).
			WithDetail("body", truncate(string(data), 256))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.EmbedError("parsing embed response", err)
	}
	if parsed.Error != "" {
		return nil, errors.EmbedError(parsed.Error, nil)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, errors.EmbedError(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors",
				len(texts), len(parsed.Embeddings)), nil)
	}

	for i, emb := range parsed.Embeddings {
		if c.dim > 0 && len(emb) != c.dim {
			return nil, errors.EmbedError(
				fmt.Sprintf("embedding %d has dimension %d, expected %d", i, len(emb), c.dim), nil)
		}
		parsed.Embeddings[i] = l2Normalize(emb)
	}

	return parsed.Embeddings, nil
}

// l2Normalize normalizes a vector to unit length.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	norm := float32(math.Sqrt(sum))
	if norm == 0 {
		return v
	}

	result := make([]float32, len(v))
	for i, x := range v {
		result[i] = x / norm
	}

	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
