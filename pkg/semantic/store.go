package semantic

import (
	"slices"
	"sync"

	"github.com/chataize/semantic-index/pkg/topk"
	"github.com/chataize/semantic-index/pkg/vector"
)

// Record is a payload and the embedding computed for it.
type Record[T any] struct {
	Payload   T         `json:"payload"`
	Embedding []float32 `json:"embedding"`
}

type entry[T any] struct {
	id  uint64
	rec Record[T]
}

// store owns the ordered record sequence. One RWMutex guards it: scans and
// copies take the read lock, mutations the write lock. No method ever calls
// out to the embedding provider.
type store[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
	nextID  uint64

	// fixed is the configured dimensionality, or 0 to learn it from the
	// first record. dims is the dimensionality currently enforced.
	fixed int
	dims  int

	equal func(a, b T) bool
}

func newStore[T any](dims int, equal func(a, b T) bool) *store[T] {
	return &store[T]{fixed: dims, dims: dims, equal: equal}
}

// checkDims validates v against the enforced dimensionality. Callers hold mu.
func (s *store[T]) checkDims(v []float32) error {
	if len(v) == 0 {
		return vector.ErrEmptyEmbedding
	}
	if s.dims == 0 {
		return nil
	}
	return vector.CheckDimensions(s.dims, len(v))
}

func (s *store[T]) indexOf(payload T) int {
	return slices.IndexFunc(s.entries, func(e entry[T]) bool {
		return s.equal(e.rec.Payload, payload)
	})
}

// insert applies policy and reports whether the record was stored.
func (s *store[T]) insert(rec Record[T], policy DuplicatePolicy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDims(rec.Embedding); err != nil {
		return false, err
	}

	switch policy {
	case DuplicateSkip:
		if s.indexOf(rec.Payload) >= 0 {
			return false, nil
		}
	case DuplicateReject:
		if s.indexOf(rec.Payload) >= 0 {
			return false, &DuplicateError{Payload: rec.Payload}
		}
	case DuplicateUpdate:
		s.removeLocked(rec.Payload)
	}

	s.appendLocked(rec)
	return true, nil
}

// insertAll applies policy to each record in order against a private copy
// of the sequence and commits only if every record is accepted.
func (s *store[T]) insertAll(recs []Record[T], policy DuplicatePolicy) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &store[T]{
		entries: slices.Clone(s.entries),
		nextID:  s.nextID,
		fixed:   s.fixed,
		dims:    s.dims,
		equal:   s.equal,
	}

	added := 0
	for _, rec := range recs {
		if err := staged.checkDims(rec.Embedding); err != nil {
			return 0, err
		}

		switch policy {
		case DuplicateSkip:
			if staged.indexOf(rec.Payload) >= 0 {
				continue
			}
		case DuplicateReject:
			if staged.indexOf(rec.Payload) >= 0 {
				return 0, &DuplicateError{Payload: rec.Payload}
			}
		case DuplicateUpdate:
			staged.removeLocked(rec.Payload)
		}

		staged.appendLocked(rec)
		added++
	}

	s.entries = staged.entries
	s.nextID = staged.nextID
	s.dims = staged.dims
	return added, nil
}

func (s *store[T]) appendLocked(rec Record[T]) {
	if s.dims == 0 {
		s.dims = len(rec.Embedding)
	}
	s.entries = append(s.entries, entry[T]{id: s.nextID, rec: rec})
	s.nextID++
}

func (s *store[T]) removeLocked(payload T) int {
	before := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e entry[T]) bool {
		return s.equal(e.rec.Payload, payload)
	})
	return before - len(s.entries)
}

func (s *store[T]) remove(payload T) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.removeLocked(payload)
	s.resetDimsIfEmpty()
	return n
}

func (s *store[T]) contains(payload T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(payload) >= 0
}

func (s *store[T]) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *store[T]) dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// snapshot returns a point-in-time deep copy of the sequence.
func (s *store[T]) snapshot() []entry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entry[T], len(s.entries))
	for i, e := range s.entries {
		out[i] = entry[T]{
			id:  e.id,
			rec: Record[T]{Payload: e.rec.Payload, Embedding: vector.Clone(e.rec.Embedding)},
		}
	}
	return out
}

func (s *store[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.dims = s.fixed
}

// replaceAll validates recs as a whole, then swaps them in atomically.
func (s *store[T]) replaceAll(recs []Record[T]) error {
	dims, err := uniformDims(recs, s.fixed)
	if err != nil {
		return err
	}

	next := make([]entry[T], len(recs))

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range recs {
		next[i] = entry[T]{
			id:  s.nextID,
			rec: Record[T]{Payload: rec.Payload, Embedding: vector.Clone(rec.Embedding)},
		}
		s.nextID++
	}
	s.entries = next
	s.dims = dims
	return nil
}

// reembed replaces the embeddings of the entries named in updates. Entries
// added after the updates were computed keep their embedding, which is only
// allowed when the dimensionality does not change.
func (s *store[T]) reembed(updates map[uint64][]float32) error {
	if len(updates) == 0 {
		return nil
	}

	dims := 0
	for _, v := range updates {
		if len(v) == 0 {
			return vector.ErrEmptyEmbedding
		}
		if dims == 0 {
			dims = len(v)
		}
		if err := vector.CheckDimensions(dims, len(v)); err != nil {
			return err
		}
	}
	if s.fixed != 0 {
		if err := vector.CheckDimensions(s.fixed, dims); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dims != s.dims {
		for _, e := range s.entries {
			if _, ok := updates[e.id]; !ok {
				return vector.CheckDimensions(dims, len(e.rec.Embedding))
			}
		}
	}

	for i := range s.entries {
		if v, ok := updates[s.entries[i].id]; ok {
			s.entries[i].rec.Embedding = v
		}
	}
	if len(s.entries) > 0 {
		s.dims = dims
	}
	return nil
}

// search scans every record under the read lock and keeps the k best by
// dot product.
func (s *store[T]) search(query []float32, k int) ([]topk.Scored[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}
	// dims is zero only while an unpinned store is empty.
	if s.dims != 0 {
		if err := vector.CheckDimensions(s.dims, len(query)); err != nil {
			return nil, err
		}
	}
	if len(s.entries) == 0 {
		return nil, nil
	}

	h := topk.New[T](k)
	for _, e := range s.entries {
		score, err := vector.Dot(query, e.rec.Embedding)
		if err != nil {
			return nil, err
		}
		h.Push(score, e.rec.Payload)
	}
	return h.Results(), nil
}

func (s *store[T]) resetDimsIfEmpty() {
	if len(s.entries) == 0 {
		s.dims = s.fixed
	}
}

// uniformDims returns the shared dimensionality of recs, or fixed when recs
// is empty.
func uniformDims[T any](recs []Record[T], fixed int) (int, error) {
	dims := fixed
	for _, rec := range recs {
		if len(rec.Embedding) == 0 {
			return 0, vector.ErrEmptyEmbedding
		}
		if dims == 0 {
			dims = len(rec.Embedding)
		}
		if err := vector.CheckDimensions(dims, len(rec.Embedding)); err != nil {
			return 0, err
		}
	}
	return dims, nil
}
