package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pawlink/recall/internal/models"
)

func unit(vals ...float32) []float32 {
	var sum float64
	for _, v := range vals {
		sum += float64(v * v)
	}
	norm := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = v * norm
	}
	return out
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("pet", 3, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSearch_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search(context.Background(), unit(1, 0, 0), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("empty store returned %d results", len(results))
	}
}

func TestSearch_OrderingAndClamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vecs := [][]float32{unit(1, 0, 0), unit(0.9, 0.1, 0), unit(0, 1, 0)}
	for i, v := range vecs {
		if err := s.Add(ctx, int64(i+1), v, models.Metadata{"n": i}); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.Search(ctx, unit(1, 0, 0), 100, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("topK not clamped to store size: got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not in descending similarity order at %d", i)
		}
	}
	if results[0].ID != 1 {
		t.Errorf("top result = %d, want 1", results[0].ID)
	}
}

func TestSearch_Threshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, 1, unit(1, 0, 0), nil)
	_ = s.Add(ctx, 2, unit(0, 1, 0), nil)

	results, err := s.Search(ctx, unit(1, 0, 0), 10, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Similarity < 0.5 {
			t.Errorf("candidate %d below threshold: %f", r.ID, r.Similarity)
		}
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestSearch_DeadlineAborts(t *testing.T) {
	s := newTestStore(t)
	_ = s.Add(context.Background(), 1, unit(1, 0, 0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Search(ctx, unit(1, 0, 0), 1, 0); err == nil {
		t.Error("cancelled context did not abort search")
	}
}

func TestAdd_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Add(ctx, 7, unit(1, 0, 0), nil); err != nil {
		t.Fatal(err)
	}
	err := s.Add(ctx, 7, unit(0, 1, 0), nil)
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate add returned %v, want ErrDuplicateID", err)
	}
	if s.Len() != 1 {
		t.Errorf("store mutated by failed add: len=%d", s.Len())
	}
}

func TestDelete_UnknownIDIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, 1, unit(1, 0, 0), nil)
	if err := s.Delete(ctx, 99); err != nil {
		t.Errorf("delete of unknown id returned error: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestAddDelete_RestoresPriorState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, 1, unit(1, 0, 0), models.Metadata{"keep": true})
	_ = s.Add(ctx, 2, unit(0, 1, 0), nil)

	before := s.Len()
	if err := s.Add(ctx, 3, unit(0, 0, 1), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if s.Len() != before {
		t.Errorf("len = %d, want %d", s.Len(), before)
	}
	if s.Contains(3) {
		t.Error("deleted id still indexed")
	}
	if !s.Contains(1) || !s.Contains(2) {
		t.Error("surviving ids lost")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore("user", 3, dir, nil)
	ctx := context.Background()
	_ = s.Add(ctx, 10, unit(1, 2, 3), models.Metadata{"nickname": "mika", "owner_id": float64(10)})
	_ = s.Add(ctx, 20, unit(3, 2, 1), models.Metadata{"nickname": "rex"})

	loaded, _ := NewStore("user", 3, dir, nil)
	if err := loaded.Load(); err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d records, want 2", loaded.Len())
	}

	for i := range s.ids {
		if s.ids[i] != loaded.ids[i] {
			t.Errorf("ids[%d] = %d, want %d", i, loaded.ids[i], s.ids[i])
		}
		for j := range s.vectors[i] {
			if s.vectors[i][j] != loaded.vectors[i][j] {
				t.Fatalf("vectors[%d][%d] differ after round trip", i, j)
			}
		}
	}
	if loaded.meta[0].MetaString("nickname") != "mika" {
		t.Error("metadata lost in round trip")
	}
	if loaded.SavedAt().IsZero() {
		t.Error("SavedAt not set after load")
	}
}

func TestLoad_MissingFileMeansStoreMissing(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore("feed", 3, dir, nil)
	if err := s.Load(); !errors.Is(err, ErrStoreMissing) {
		t.Errorf("load of absent store = %v, want ErrStoreMissing", err)
	}

	// Partial triple is the same as absent.
	_ = s.Add(context.Background(), 1, unit(1, 0, 0), nil)
	if err := os.Remove(filepath.Join(dir, "feed_meta.json")); err != nil {
		t.Fatal(err)
	}
	fresh, _ := NewStore("feed", 3, dir, nil)
	if err := fresh.Load(); !errors.Is(err, ErrStoreMissing) {
		t.Errorf("load of partial store = %v, want ErrStoreMissing", err)
	}
}

func TestNormalizationInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, 1, unit(2, 3, 4), nil)
	_ = s.Add(ctx, 2, unit(-1, 5, 0), nil)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, vec := range s.vectors {
		if math.Abs(L2Norm(vec)-1) > 1e-5 {
			t.Errorf("vector %d norm = %f, want 1", i, L2Norm(vec))
		}
	}
}

func TestReplaceAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Add(ctx, 1, unit(1, 0, 0), nil)

	ids := []int64{5, 6}
	vecs := [][]float32{unit(0, 1, 0), unit(0, 0, 1)}
	metas := []models.Metadata{nil, nil}
	if err := s.ReplaceAll(ctx, ids, vecs, metas); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Contains(1) {
		t.Error("replace did not swap contents")
	}

	if err := s.ReplaceAll(ctx, []int64{7, 7}, vecs, metas); err == nil {
		t.Error("duplicate ids accepted in replace")
	}
	if err := s.ReplaceAll(ctx, []int64{7}, vecs, metas); err == nil {
		t.Error("misaligned collections accepted in replace")
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("InnerProduct = %f, want 1", got)
	}
	if got := InnerProduct([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal InnerProduct = %f, want 0", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should return 0, got %f", got)
	}
}
