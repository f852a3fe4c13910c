// Package ollama embeds record and query text through a local Ollama
// server's /api/embed endpoint.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/vector"
)

const (
	// DefaultEmbeddingModel is used when EmbedderConfig.Model is empty.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is where a stock Ollama install listens.
	DefaultBaseURL = "http://localhost:11434"

	defaultTimeout = 2 * time.Minute

	// maxErrorBody caps how much of a failed response ends up in an error.
	maxErrorBody = 4 << 10
)

// EmbedderConfig configures an Embedder. Zero values pick the defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string

	// Dimensions asks the model to truncate its output and is checked
	// against every returned vector. 0 keeps the model's native size.
	Dimensions uint

	// KeepAlive is how long Ollama keeps the model loaded after a request,
	// e.g. "10m". Empty leaves the server default.
	KeepAlive string

	// Timeout bounds a single request.
	Timeout time.Duration
}

// Embedder is an embeddings.Embedder bound to one Ollama model.
type Embedder struct {
	baseURL    string
	model      string
	dims       uint
	keepAlive  string
	httpClient *http.Client
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions uint   `json:"dimensions,omitempty"`
	KeepAlive  string `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewEmbedder returns an Embedder for cfg.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	e := &Embedder{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dims:      cfg.Dimensions,
		keepAlive: cfg.KeepAlive,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.model == "" {
		e.model = DefaultEmbeddingModel
	}
	if e.httpClient.Timeout == 0 {
		e.httpClient.Timeout = defaultTimeout
	}
	return e, nil
}

// Model returns the model every vector of this Embedder comes from.
func (e *Embedder) Model() string {
	return e.model
}

// Embed returns the vector Ollama computes for text. Every failure wraps
// vector.ErrEmbedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := gojson.Marshal(embedRequest{
		Model:      e.model,
		Input:      text,
		Dimensions: e.dims,
		KeepAlive:  e.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding ollama request: %v", vector.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building ollama request: %v", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling ollama: %w", vector.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama model %s: status %d: %s",
			vector.ErrEmbedding, e.model, resp.StatusCode, readError(resp.Body))
	}

	var out embedResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding ollama response: %v", vector.ErrEmbedding, err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: ollama model %s: %w", vector.ErrEmbedding, e.model, vector.ErrEmptyEmbedding)
	}

	emb := out.Embeddings[0]
	if e.dims > 0 {
		if err := vector.CheckDimensions(int(e.dims), len(emb)); err != nil {
			return nil, fmt.Errorf("%w: ollama model %s: %w", vector.ErrEmbedding, e.model, err)
		}
	}
	return emb, nil
}

// Close drops idle connections to the server.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// readError extracts Ollama's {"error": ...} message, falling back to the
// raw body.
func readError(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))

	var er errorResponse
	if gojson.Unmarshal(raw, &er) == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(raw))
}

var _ embeddings.Embedder = (*Embedder)(nil)
