package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/embedding"
	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/vector"
	"github.com/pawlink/recall/pkg/utils"
)

// Registry lazily constructs and caches one vector store per entity type for
// the process lifetime. First access loads the persisted triple; a missing
// triple triggers a full build from the entity source.
type Registry struct {
	dir         string
	dim         int
	batchSize   int
	expiryHours int

	embedder embedding.Embedder
	sources  map[string]EntitySource

	// mu guards stores and is held across lazy construction, so a store is
	// never observable before its load-or-build finished.
	mu     sync.Mutex
	stores map[string]*vector.Store

	logger *zap.Logger
}

// Options configures a Registry.
type Options struct {
	IndexDir    string
	Dimensions  int
	BatchSize   int
	ExpiryHours int
}

// New creates a registry over the given sources and embedder.
func New(opts Options, embedder embedding.Embedder, sources map[string]EntitySource, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 4
	}
	return &Registry{
		dir:         opts.IndexDir,
		dim:         opts.Dimensions,
		batchSize:   batch,
		expiryHours: opts.ExpiryHours,
		embedder:    embedder,
		sources:     sources,
		stores:      make(map[string]*vector.Store),
		logger:      logger,
	}
}

// Store returns the store for entity, constructing it on first access:
// load from disk when the triple exists, otherwise build from the source.
func (r *Registry) Store(ctx context.Context, entity string) (*vector.Store, error) {
	source, ok := r.sources[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity type: %q", entity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[entity]; ok {
		return s, nil
	}

	s, err := vector.NewStore(entity, r.dim, r.dir, r.logger)
	if err != nil {
		return nil, err
	}
	if err := s.Load(); err != nil {
		if !errors.Is(err, vector.ErrStoreMissing) {
			r.logger.Warn("persisted index unreadable, rebuilding",
				zap.String("entity", entity), zap.Error(err))
		}
		if err := r.build(ctx, s, source); err != nil {
			return nil, fmt.Errorf("build %s index: %w", entity, err)
		}
	}
	r.stores[entity] = s
	return s, nil
}

// Rebuild fetches all eligible rows from the entity source, embeds them in
// fixed-size batches, and replaces the store contents.
func (r *Registry) Rebuild(ctx context.Context, entity string) error {
	s, err := r.Store(ctx, entity)
	if err != nil {
		return err
	}
	return r.build(ctx, s, r.sources[entity])
}

func (r *Registry) build(ctx context.Context, s *vector.Store, source EntitySource) error {
	start := time.Now()
	seeds, err := source.LoadAll(ctx)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(seeds))
	vectors := make([][]float32, 0, len(seeds))
	metas := make([]models.Metadata, 0, len(seeds))
	for begin := 0; begin < len(seeds); begin += r.batchSize {
		end := begin + r.batchSize
		if end > len(seeds) {
			end = len(seeds)
		}
		texts := make([]string, 0, end-begin)
		for _, seed := range seeds[begin:end] {
			texts = append(texts, seed.Text)
		}
		batch, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", begin, err)
		}
		for i, vec := range batch {
			utils.NormalizeL2(vec)
			ids = append(ids, seeds[begin+i].ID)
			vectors = append(vectors, vec)
			metas = append(metas, seeds[begin+i].Metadata)
		}
	}

	if err := s.ReplaceAll(ctx, ids, vectors, metas); err != nil {
		return err
	}
	r.logger.Info("index built",
		zap.String("entity", source.Entity()),
		zap.Int("records", len(ids)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// AddItem embeds text and appends the record to the entity store. A duplicate
// id is vector.ErrDuplicateID; upsert callers delete first.
func (r *Registry) AddItem(ctx context.Context, entity string, id int64, text string, meta models.Metadata) error {
	s, err := r.Store(ctx, entity)
	if err != nil {
		return err
	}
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed item %d: %w", id, err)
	}
	utils.NormalizeL2(vec)
	return s.Add(ctx, id, vec, meta)
}

// DeleteItem removes id from the entity store. Unknown ids are a logged no-op.
func (r *Registry) DeleteItem(ctx context.Context, entity string, id int64) error {
	s, err := r.Store(ctx, entity)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// UpsertItem deletes any existing record with id, then adds the new one.
func (r *Registry) UpsertItem(ctx context.Context, entity string, id int64, text string, meta models.Metadata) error {
	if err := r.DeleteItem(ctx, entity, id); err != nil {
		return err
	}
	return r.AddItem(ctx, entity, id, text, meta)
}

// CheckAndRefresh rebuilds the entity store when expiry is enabled and the
// persisted files are older than the configured age. With expiry disabled
// (the default) it is a no-op.
func (r *Registry) CheckAndRefresh(ctx context.Context, entity string) error {
	if r.expiryHours <= 0 {
		return nil
	}
	s, err := r.Store(ctx, entity)
	if err != nil {
		return err
	}
	age := time.Since(s.SavedAt())
	if s.SavedAt().IsZero() || age < time.Duration(r.expiryHours)*time.Hour {
		return nil
	}
	r.logger.Info("index expired, rebuilding",
		zap.String("entity", entity), zap.Duration("age", age))
	return r.Rebuild(ctx, entity)
}

// LoadedStores returns the stores constructed so far, keyed by entity. It
// never triggers a load or build; unconstructed entities are absent.
func (r *Registry) LoadedStores() map[string]*vector.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*vector.Store, len(r.stores))
	for entity, s := range r.stores {
		out[entity] = s
	}
	return out
}

// Entities lists entity types this registry can serve.
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.sources))
	for _, e := range models.EntityTypes {
		if _, ok := r.sources[e]; ok {
			out = append(out, e)
		}
	}
	return out
}
