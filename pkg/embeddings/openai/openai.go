// Package openai implements pkg/embeddings' Embedder client for the OpenAI
// embeddings API and OpenAI-compatible servers.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/vector"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = string(goopenai.SmallEmbedding3)
)

// Embedder wraps the OpenAI embeddings endpoint.
type Embedder struct {
	client     *goopenai.Client
	model      string
	dimensions int
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the API base URL (e.g. "https://api.openai.com/v1").
	BaseURL string

	// Model is the embedding model to use. Defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions requests a shortened output vector from models that support
	// it. Zero leaves the model's native size.
	Dimensions uint

	// Timeout bounds a single request. Defaults to one minute.
	Timeout time.Duration
}

// NewEmbedder creates a new embedder backed by go-openai.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: int(cfg.Dimensions),
	}, nil
}

// Model returns the model identifier sent with every request.
func (e *Embedder) Model() string {
	return e.model
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      goopenai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", vector.ErrEmbedding, err)
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return rsp.Data[0].Embedding, nil
}

// Close is a no-op; the underlying HTTP client holds no dedicated resources.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
