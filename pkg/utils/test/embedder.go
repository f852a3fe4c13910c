package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/chataize/semantic-index/pkg/vector"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	// Embeddings maps input text to the vector returned for it.
	Embeddings map[string][]float32

	// Default is returned for text missing from Embeddings.
	Default []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Gate, when non-nil, blocks every Embed call until it is closed or the
	// context is done.
	Gate chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
		calls:      make(map[string]int),
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls[text]++
	gate := m.Gate
	failOn := m.FailOn
	emb, ok := m.Embeddings[text]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, ctx.Err())
		}
	}

	if failOn != "" && text == failOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", vector.ErrEmbedding, text)
	}

	if ok {
		return vector.Clone(emb), nil
	}
	return vector.Clone(m.Default), nil
}

// Set registers the vector returned for text. Safe to call concurrently with Embed.
func (m *MockEmbedder) Set(text string, emb []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Embeddings[text] = emb
}

// Calls returns how many times Embed was called with text.
func (m *MockEmbedder) Calls(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

// TotalCalls returns the number of Embed calls across all inputs.
func (m *MockEmbedder) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockEmbedder) Close() error {
	return nil
}
