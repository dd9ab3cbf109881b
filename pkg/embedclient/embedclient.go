// Package embedclient provides an Ollama-backed implementation of
// transform.Embedder. Adapted from the teacher's pkg/ollama client: same
// request/response shape and error wrapping, with the gRPC service wrapper
// dropped since this pipeline calls Embed directly from a worker pool
// rather than through a proto service boundary.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gperdrizet/OpenSearch/pkg/resilience"
)

// embedRateLimit caps outbound embedding requests so the EmbedText stage's
// worker pool can't flood a local Ollama instance faster than it can
// serve — every worker in the stage shares one Client.
var embedRateLimit = resilience.LimiterOpts{Rate: 50, Burst: 50}

// Client implements transform.Embedder against Ollama's HTTP embeddings
// endpoint.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *resilience.Limiter
}

// New creates an Ollama embedding client. Outbound requests carry a span
// via otelhttp, matching the teacher's pkg/ollama instrumented transport.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter: resilience.NewLimiter(embedRateLimit),
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed satisfies transform.Embedder. It blocks on the client's rate
// limiter before issuing the request, so EmbedText's worker pool self-paces
// against the embedding service instead of overrunning it.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedclient: %w", err)
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedclient: status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedclient: decode: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
