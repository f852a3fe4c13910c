// Package tagindex is an append-only semantic log. Every Add appends one
// line holding the record's tags, embedding, precomputed magnitude and text,
// and Find streams the file back, keeping the best cosine matches among the
// lines that carry every requested tag.
package tagindex

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chataize/semantic-index/pkg/embeddings"
	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/semantic"
	"github.com/chataize/semantic-index/pkg/topk"
	"github.com/chataize/semantic-index/pkg/vector"
)

const (
	maxLineSize = 64 << 20

	// ctxCheckEvery is how many lines a scan reads between context checks.
	ctxCheckEvery = 1024
)

// Config holds configuration for an Index.
type Config struct {
	// Path is the log file. It is created on the first Add.
	Path string

	// Dimensions, when non-zero, is enforced on every added embedding and
	// every query. Otherwise the first well-formed line of the log sets it.
	Dimensions int
}

// Match is a single Find result.
type Match struct {
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
	Score float32  `json:"score"`
}

// Index is safe for concurrent use within one process.
type Index struct {
	mu       sync.RWMutex
	path     string
	dims     int
	learned  int // log dimensionality when dims is 0; guarded by mu, 0 until known
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// Open returns an Index over the log at c.Path.
func Open(c Config, embedder embeddings.Embedder, log *slog.Logger) (*Index, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%w: index path is required", semantic.ErrValidation)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", semantic.ErrValidation)
	}
	if c.Dimensions < 0 {
		return nil, fmt.Errorf("%w: dimensions cannot be negative", semantic.ErrValidation)
	}
	if log == nil {
		log = logger.Nop()
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return nil, &semantic.PersistenceError{Op: "open", Path: c.Path, Err: err}
	}

	return &Index{
		path:     c.Path,
		dims:     c.Dimensions,
		embedder: embedder,
		logger:   log,
	}, nil
}

// Path returns the log file path.
func (idx *Index) Path() string {
	return idx.path
}

// Add embeds text and appends it to the log with tags.
func (idx *Index) Add(ctx context.Context, text string, tags ...string) error {
	if text == "" {
		return fmt.Errorf("%w: text is empty", semantic.ErrValidation)
	}
	if err := ValidateTags(tags); err != nil {
		return err
	}

	emb, err := idx.embed(ctx, text)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := encodeLine(tags, emb, vector.Magnitude(emb), text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkLogDims(len(emb)); err != nil {
		return err
	}

	f, err := os.OpenFile(idx.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &semantic.PersistenceError{Op: "append", Path: idx.path, Err: err}
	}
	if _, err := io.WriteString(f, rec); err != nil {
		f.Close()
		return &semantic.PersistenceError{Op: "append", Path: idx.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &semantic.PersistenceError{Op: "append", Path: idx.path, Err: err}
	}

	if idx.dims == 0 {
		idx.learned = len(emb)
	}

	idx.logger.Debug("index record appended", "tags", tags, "dimensions", len(emb))
	return nil
}

// Find embeds query and returns up to k of the most similar records that
// carry every tag in tags, best first.
func (idx *Index) Find(ctx context.Context, query string, tags []string, k int) ([]Match, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query text is empty", semantic.ErrValidation)
	}
	if k <= 0 {
		return nil, nil
	}

	emb, err := idx.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.FindVector(ctx, emb, tags, k)
}

// FindFirst returns the single best match for query. ok is false when no
// record carries the requested tags.
func (idx *Index) FindFirst(ctx context.Context, query string, tags []string) (best Match, ok bool, err error) {
	matches, err := idx.Find(ctx, query, tags, 1)
	if err != nil || len(matches) == 0 {
		return Match{}, false, err
	}
	return matches[0], true, nil
}

// FindVector is Find with a precomputed query embedding.
func (idx *Index) FindVector(ctx context.Context, query []float32, tags []string, k int) ([]Match, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", semantic.ErrValidation)
	}
	if idx.dims > 0 {
		if err := vector.CheckDimensions(idx.dims, len(query)); err != nil {
			return nil, fmt.Errorf("%w: %w", semantic.ErrValidation, err)
		}
	}
	if k <= 0 {
		return nil, nil
	}

	queryMag := vector.Magnitude(query)
	h := topk.New[Match](k)

	logDims := idx.dims
	skipped := 0
	err := idx.scan(ctx, func(raw string) error {
		l, err := decodeLine(raw)
		if err != nil {
			skipped++
			return nil
		}
		if logDims == 0 {
			logDims = len(l.embedding)
			if err := vector.CheckDimensions(logDims, len(query)); err != nil {
				return fmt.Errorf("%w: %w", semantic.ErrValidation, err)
			}
		}
		if len(l.embedding) != logDims {
			skipped++
			return nil
		}
		if !l.hasTags(tags) {
			return nil
		}

		score, err := vector.Cosine(query, l.embedding, queryMag, l.magnitude)
		if err != nil {
			return err
		}
		if h.Len() == k {
			if worst, _ := h.Worst(); score <= worst {
				return nil
			}
		}

		h.Push(score, Match{
			Text:  unescapePayload(l.payload),
			Tags:  l.tags,
			Score: score,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		idx.logger.Debug("skipped unreadable index lines", "path", idx.path, "count", skipped)
	}
	return h.Items(), nil
}

// Count returns the number of well-formed records in the log.
func (idx *Index) Count(ctx context.Context) (int, error) {
	n := 0
	err := idx.scan(ctx, func(raw string) error {
		if _, err := decodeLine(raw); err == nil {
			n++
		}
		return nil
	})
	return n, err
}

// Remove rewrites the log without the records whose text equals text and
// returns how many were removed.
func (idx *Index) Remove(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("%w: text is empty", semantic.ErrValidation)
	}

	stored := escapePayload(text)
	return idx.rewrite(ctx, func(l line) bool {
		return l.payload == stored
	})
}

// RemoveTags rewrites the log without the records that carry every tag in
// tags and returns how many were removed.
func (idx *Index) RemoveTags(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		return 0, fmt.Errorf("%w: at least one tag is required", semantic.ErrValidation)
	}
	if err := ValidateTags(tags); err != nil {
		return 0, err
	}

	return idx.rewrite(ctx, func(l line) bool {
		return l.hasTags(tags)
	})
}

// Close closes the embedder.
func (idx *Index) Close() error {
	return idx.embedder.Close()
}

// scan calls fn with every line of the log under the read lock. A missing
// log has no lines.
func (idx *Index) scan(ctx context.Context, fn func(raw string) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	f, err := os.Open(idx.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &semantic.PersistenceError{Op: "read", Path: idx.path, Err: err}
	}
	defer f.Close()

	sc := newScanner(f)
	for n := 1; sc.Scan(); n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &semantic.PersistenceError{Op: "read", Path: idx.path, Err: err}
	}
	return ctx.Err()
}

// rewrite copies the log into a sibling temp file, omitting the records
// drop selects, and renames it over the original. Unreadable lines are kept.
func (idx *Index) rewrite(ctx context.Context, drop func(line) bool) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	src, err := os.Open(idx.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(idx.path), "."+filepath.Base(idx.path)+".*.tmp")
	if err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	w := bufio.NewWriter(tmp)
	removed := 0

	sc := newScanner(src)
	for n := 1; sc.Scan(); n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		raw := sc.Text()
		if l, err := decodeLine(raw); err == nil && drop(l) {
			removed++
			continue
		}
		if _, err := w.WriteString(raw + "\n"); err != nil {
			return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	if err := w.Flush(); err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), idx.path); err != nil {
		return 0, &semantic.PersistenceError{Op: "rewrite", Path: idx.path, Err: err}
	}

	idx.learned = 0

	idx.logger.Debug("index rewritten", "path", idx.path, "removed", removed)
	return removed, nil
}

// checkLogDims validates an embedding of n dimensions against the log when
// no dimensionality is pinned. Callers hold the write lock.
func (idx *Index) checkLogDims(n int) error {
	if idx.dims > 0 {
		return nil
	}
	if idx.learned == 0 {
		d, err := idx.firstDims()
		if err != nil {
			return err
		}
		idx.learned = d
	}
	if idx.learned == 0 {
		return nil
	}
	if err := vector.CheckDimensions(idx.learned, n); err != nil {
		return fmt.Errorf("%w: %w", semantic.ErrValidation, err)
	}
	return nil
}

// firstDims returns the dimensionality of the first well-formed line, or 0
// for a log without one. Callers hold mu.
func (idx *Index) firstDims() (int, error) {
	f, err := os.Open(idx.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, &semantic.PersistenceError{Op: "read", Path: idx.path, Err: err}
	}
	defer f.Close()

	sc := newScanner(f)
	for sc.Scan() {
		if l, err := decodeLine(sc.Text()); err == nil {
			return len(l.embedding), nil
		}
	}
	if err := sc.Err(); err != nil {
		return 0, &semantic.PersistenceError{Op: "read", Path: idx.path, Err: err}
	}
	return 0, nil
}

func (idx *Index) embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, vector.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}
	if len(emb) == 0 {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, vector.ErrEmptyEmbedding)
	}
	if idx.dims > 0 {
		if err := vector.CheckDimensions(idx.dims, len(emb)); err != nil {
			return nil, fmt.Errorf("%w: %w", semantic.ErrValidation, err)
		}
	}
	return emb, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

// ValidateTags reports whether tags can be stored: non-empty and free of
// the log's separator and line-break characters.
func ValidateTags(tags []string) error {
	for _, t := range tags {
		if t == "" {
			return fmt.Errorf("%w: tags cannot be empty", semantic.ErrValidation)
		}
		if strings.ContainsAny(t, fieldSep+itemSep+"\r\n") {
			return fmt.Errorf("%w: tag %q contains a reserved character", semantic.ErrValidation, t)
		}
	}
	return nil
}
