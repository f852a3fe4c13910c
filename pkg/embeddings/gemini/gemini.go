// Package gemini implements pkg/embeddings' Embedder client for the Gemini
// embedding models via google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/vector"
)

// DefaultEmbeddingModel is the default model used for embeddings.
const DefaultEmbeddingModel = "gemini-embedding-001"

// Embedder wraps the Gemini EmbedContent API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the embedding model to use. Defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions truncates the output vector. Zero keeps the model default.
	Dimensions uint
}

// NewEmbedder creates a new Gemini embedder.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Embedder{
		client:     client,
		model:      model,
		dimensions: int32(cfg.Dimensions),
	}, nil
}

// Model returns the model identifier sent with every request.
func (e *Embedder) Model() string {
	return e.model
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var cfg *genai.EmbedContentConfig
	if e.dimensions > 0 {
		dims := e.dimensions
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	rsp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", vector.ErrEmbedding, err)
	}

	if rsp == nil || len(rsp.Embeddings) == 0 || len(rsp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return rsp.Embeddings[0].Values, nil
}

// Close is a no-op; genai clients hold no closable resources.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
