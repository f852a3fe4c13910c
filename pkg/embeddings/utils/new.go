// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/embeddings/cache"
	"github.com/chataize/semantic-index/pkg/embeddings/gemini"
	"github.com/chataize/semantic-index/pkg/embeddings/ollama"
	"github.com/chataize/semantic-index/pkg/embeddings/openai"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// SupportedProviders lists the accepted ProviderType values.
var SupportedProviders = []string{ProviderOllama, ProviderOpenAI, ProviderGemini}

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint

	// CacheDir, when set, memoizes embeddings in a badger store there.
	CacheDir string

	Logger *slog.Logger
}

type modeler interface {
	Model() string
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case ProviderOllama:
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case ProviderOpenAI:
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case ProviderGemini:
		e, err = gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheDir == "" {
		return e, nil
	}

	namespace := o.ProviderType
	if m, ok := e.(modeler); ok {
		namespace += ":" + m.Model()
	}

	cached, err := cache.New(e, cache.Config{Dir: o.CacheDir, Namespace: namespace}, o.Logger)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	return cached, nil
}
