// Package embedding is the Embedding Provider (EP) component (spec §2,
// §4.4): an OpenAI-compatible text-to-vector service invoked synchronously
// during edge write when vectorization is requested.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/metrics"
)

var ErrEmbeddingProviderError = errors.New("embedding provider error")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type embedder struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

func NewEmbedder(cfg Config, log *logger.Logger) Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		log:    log.With("service", "Embedder"),
	}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("success").Observe(duration.Seconds())
	e.log.Perf("embedding call completed", "duration_ms", duration.Milliseconds())

	return resp.Data[0].Embedding, nil
}

func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrEmbeddingProviderError)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrEmbeddingProviderError)
	}
	return fmt.Errorf("embedding request failed: %w", ErrEmbeddingProviderError)
}
