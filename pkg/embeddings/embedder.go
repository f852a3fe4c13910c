// Package embeddings defines the contract for the external embedding provider
// that turns payload and query text into fixed-length vectors.
//
// The model is chosen when an Embedder is constructed, so every vector an
// instance returns shares one dimensionality.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
