package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pawlink/recall/internal/models"
)

// Persisted layout: three files per store under the index directory.
//   <name>_ids.json     JSON array of int64 ids
//   <name>_vectors.bin  little-endian: uint32 dim, uint32 n, then n*dim float32
//   <name>_meta.json    JSON array of metadata objects
// All three always hold the same record count. Writes go to temp files first
// and are renamed into place, so a crash mid-save leaves the previous triple.

func (s *Store) idsPath() string  { return filepath.Join(s.dir, s.name+"_ids.json") }
func (s *Store) vecsPath() string { return filepath.Join(s.dir, s.name+"_vectors.bin") }
func (s *Store) metaPath() string { return filepath.Join(s.dir, s.name+"_meta.json") }

// persist writes the triple to disk. Callers hold the write lock.
func (s *Store) persist(ids []int64, vectors [][]float32, metas []models.Metadata) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal ids: %w", err)
	}
	metaJSON, err := json.Marshal(metas)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	vecBytes := encodeVectors(s.dim, vectors)

	files := []struct {
		path string
		data []byte
	}{
		{s.vecsPath(), vecBytes},
		{s.metaPath(), metaJSON},
		{s.idsPath(), idsJSON},
	}
	tmp := make([]string, len(files))
	for i, f := range files {
		tmp[i] = f.path + ".tmp"
		if err := os.WriteFile(tmp[i], f.data, 0o644); err != nil {
			cleanup(tmp[:i+1])
			return fmt.Errorf("write %s: %w", filepath.Base(tmp[i]), err)
		}
	}
	// ids last: Load treats a missing ids file as "store absent", so an
	// interrupted rename sequence reads as a rebuild, never a torn triple.
	for i, f := range files {
		if err := os.Rename(tmp[i], f.path); err != nil {
			cleanup(tmp[i:])
			return fmt.Errorf("replace %s: %w", filepath.Base(f.path), err)
		}
	}
	return nil
}

func cleanup(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// Exists reports whether all three persisted files are present.
func (s *Store) Exists() bool {
	for _, p := range []string{s.idsPath(), s.vecsPath(), s.metaPath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Load reads the persisted triple into memory, replacing current contents.
// Missing or partially missing files return ErrStoreMissing; mismatched counts
// or dimensions are corruption errors.
func (s *Store) Load() error {
	if !s.Exists() {
		return ErrStoreMissing
	}

	idsJSON, err := os.ReadFile(s.idsPath())
	if err != nil {
		return fmt.Errorf("read ids: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(idsJSON, &ids); err != nil {
		return fmt.Errorf("parse ids: %w", err)
	}

	vecBytes, err := os.ReadFile(s.vecsPath())
	if err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}
	dim, vectors, err := decodeVectors(vecBytes)
	if err != nil {
		return fmt.Errorf("parse vectors: %w", err)
	}
	if dim != s.dim {
		return fmt.Errorf("vector file dimension %d, store expects %d", dim, s.dim)
	}

	metaJSON, err := os.ReadFile(s.metaPath())
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	var metas []models.Metadata
	if err := json.Unmarshal(metaJSON, &metas); err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	if len(ids) != len(vectors) || len(ids) != len(metas) {
		return fmt.Errorf("misaligned persisted collections: %d ids, %d vectors, %d metadata",
			len(ids), len(vectors), len(metas))
	}

	savedAt := time.Time{}
	if info, err := os.Stat(s.idsPath()); err == nil {
		savedAt = info.ModTime()
	}

	s.mu.Lock()
	s.ids, s.vectors, s.meta = ids, vectors, metas
	s.savedAt = savedAt
	s.mu.Unlock()
	return nil
}

func encodeVectors(dim int, vectors [][]float32) []byte {
	out := make([]byte, 8+len(vectors)*dim*4)
	binary.LittleEndian.PutUint32(out[0:4], uint32(dim))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(vectors)))
	off := 8
	for _, vec := range vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v))
			off += 4
		}
	}
	return out
}

func decodeVectors(data []byte) (int, [][]float32, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("vector file too short (%d bytes)", len(data))
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	if dim <= 0 {
		return 0, nil, fmt.Errorf("invalid dimension %d", dim)
	}
	want := 8 + n*dim*4
	if len(data) != want {
		return 0, nil, fmt.Errorf("vector file has %d bytes, expected %d for %d x %d", len(data), want, n, dim)
	}
	vectors := make([][]float32, n)
	off := 8
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vectors[i] = vec
	}
	return dim, vectors, nil
}
