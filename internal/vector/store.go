// Package vector implements the per-entity vector index: three index-aligned
// collections (ids, embeddings, metadata) with exact brute-force cosine search
// and three-file persistence.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/models"
)

var (
	// ErrStoreMissing is returned by Load when one or more of the persisted
	// files is absent. Callers treat this as "store does not exist" and rebuild
	// from the backing source.
	ErrStoreMissing = errors.New("vector store files missing")
	// ErrDuplicateID is returned by Add when the id is already indexed. Upsert
	// is the caller's responsibility (delete, then add).
	ErrDuplicateID = errors.New("id already indexed")
)

// Store is one vector index for one entity type. The three collections are
// index-aligned: ids[i], vectors[i], and meta[i] describe the same record.
// All vectors are unit-norm, so inner product equals cosine similarity.
type Store struct {
	name string
	dim  int
	dir  string

	mu      sync.RWMutex
	ids     []int64
	vectors [][]float32
	meta    []models.Metadata
	savedAt time.Time

	logger *zap.Logger
}

// NewStore creates an empty store named name with the given dimension,
// persisting under dir.
func NewStore(name string, dim int, dir string, logger *zap.Logger) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{name: name, dim: dim, dir: dir, logger: logger}, nil
}

// Name returns the store identifier (entity type).
func (s *Store) Name() string { return s.name }

// Dim returns the embedding dimension.
func (s *Store) Dim() int { return s.dim }

// Len returns the number of indexed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// SavedAt returns the time the persisted files were last written, or zero when
// the store has never been saved.
func (s *Store) SavedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savedAt
}

// Add appends one record and rewrites the persisted files. The vector must be
// unit-norm and of the store dimension. A duplicate id is ErrDuplicateID; the
// in-memory and on-disk state are unchanged on any error.
func (s *Store) Add(ctx context.Context, id int64, vec []float32, meta models.Metadata) error {
	if len(vec) != s.dim {
		return fmt.Errorf("vector dimension %d, store expects %d", len(vec), s.dim)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.ids {
		if existing == id {
			return fmt.Errorf("add %s id %d: %w", s.name, id, ErrDuplicateID)
		}
	}

	own := make([]float32, s.dim)
	copy(own, vec)
	ids := append(append([]int64{}, s.ids...), id)
	vectors := append(append([][]float32{}, s.vectors...), own)
	metas := append(append([]models.Metadata{}, s.meta...), meta)

	if err := s.persist(ids, vectors, metas); err != nil {
		return fmt.Errorf("add %s id %d: %w", s.name, id, err)
	}
	s.ids, s.vectors, s.meta = ids, vectors, metas
	s.savedAt = time.Now()
	return nil
}

// Delete removes the record with id from all three collections and rewrites the
// persisted files. An unknown id is a warning, not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := -1
	for i, existing := range s.ids {
		if existing == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		s.logger.Warn("delete: id not indexed",
			zap.String("store", s.name), zap.Int64("id", id))
		return nil
	}

	ids := make([]int64, 0, len(s.ids)-1)
	vectors := make([][]float32, 0, len(s.vectors)-1)
	metas := make([]models.Metadata, 0, len(s.meta)-1)
	for i := range s.ids {
		if i == pos {
			continue
		}
		ids = append(ids, s.ids[i])
		vectors = append(vectors, s.vectors[i])
		metas = append(metas, s.meta[i])
	}

	if err := s.persist(ids, vectors, metas); err != nil {
		return fmt.Errorf("delete %s id %d: %w", s.name, id, err)
	}
	s.ids, s.vectors, s.meta = ids, vectors, metas
	s.savedAt = time.Now()
	return nil
}

// ReplaceAll swaps in a freshly built triple (full rebuild) and persists it.
// The three slices must be index-aligned and ids unique.
func (s *Store) ReplaceAll(ctx context.Context, ids []int64, vectors [][]float32, metas []models.Metadata) error {
	if len(ids) != len(vectors) || len(ids) != len(metas) {
		return fmt.Errorf("replace %s: misaligned collections (%d ids, %d vectors, %d metadata)",
			s.name, len(ids), len(vectors), len(metas))
	}
	seen := make(map[int64]struct{}, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != s.dim {
			return fmt.Errorf("replace %s: vector %d has dimension %d, store expects %d",
				s.name, i, len(vectors[i]), s.dim)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("replace %s: duplicate id %d", s.name, id)
		}
		seen[id] = struct{}{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ids, vectors, metas); err != nil {
		return fmt.Errorf("replace %s: %w", s.name, err)
	}
	s.ids, s.vectors, s.meta = ids, vectors, metas
	s.savedAt = time.Now()
	return nil
}

// Contains reports whether id is indexed.
func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Search computes the inner product between query and every stored vector and
// returns the topK highest at or above minSimilarity, sorted descending.
// topK is clamped to the store size; an empty store returns an empty slice.
// The context deadline is checked periodically during the scan.
func (s *Store) Search(ctx context.Context, query []float32, topK int, minSimilarity float64) ([]*models.Candidate, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query dimension %d, store expects %d", len(query), s.dim)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.ids) == 0 {
		return []*models.Candidate{}, nil
	}
	if topK > len(s.ids) {
		topK = len(s.ids)
	}

	type scored struct {
		idx int
		sim float64
	}
	scores := make([]scored, len(s.ids))
	for i, vec := range s.vectors {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var dot float64
		for j := 0; j < s.dim; j++ {
			dot += float64(query[j] * vec[j])
		}
		scores[i] = scored{idx: i, sim: dot}
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].sim > scores[b].sim })

	out := make([]*models.Candidate, 0, topK)
	for _, sc := range scores[:topK] {
		if sc.sim < minSimilarity {
			break
		}
		out = append(out, &models.Candidate{
			ID:         s.ids[sc.idx],
			Similarity: sc.sim,
			Metadata:   s.meta[sc.idx],
		})
	}
	return out, nil
}
