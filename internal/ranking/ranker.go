// Package ranking blends exact relational matches with vector similarity into
// one scored candidate list. It owns the user-recommendation scorer and the
// filtered disease-archive search.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/config"
	"github.com/pawlink/recall/internal/embedding"
	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/registry"
	"github.com/pawlink/recall/internal/storage"
	"github.com/pawlink/recall/pkg/utils"
)

// Ranker merges relational lookups and vector search results.
type Ranker struct {
	store    storage.Storage
	registry *registry.Registry
	embedder embedding.Embedder
	runtime  *config.Runtime
	logger   *zap.Logger
}

// New creates a ranker over the relational store and vector registry.
func New(store storage.Storage, reg *registry.Registry, embedder embedding.Embedder, runtime *config.Runtime, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{store: store, registry: reg, embedder: embedder, runtime: runtime, logger: logger}
}

// RecommendUsers scores follow candidates for userID. Relational breed matches
// get a flat bonus, vector similarity contributes similarity*100, and the two
// accumulate for ids found by both paths. The querying user and anyone they
// already follow are excluded. limit is capped by the configured recommend
// limit.
func (r *Ranker) RecommendUsers(ctx context.Context, userID int64, query string, filters models.Entities, limit int) ([]*models.Candidate, error) {
	search := r.runtime.Search()
	if limit <= 0 || limit > search.RecommendLimit {
		limit = search.RecommendLimit
	}

	excluded := map[int64]struct{}{userID: {}}
	if userID > 0 {
		followed, err := r.store.FollowedIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load followed ids: %w", err)
		}
		for _, id := range followed {
			excluded[id] = struct{}{}
		}
	}

	type merged struct {
		score      float64
		similarity float64
		meta       models.Metadata
		relational bool
	}
	byID := make(map[int64]*merged)

	// relational pass: breed substring match, optionally constrained by type.
	// The query itself guarantees the breed match; the type bonus applies when
	// the caller constrained the type, since the query enforced it too.
	if filters.PetBreed != "" {
		users, err := r.store.FindUsersByPetBreed(ctx, filters.PetBreed, filters.PetType)
		if err != nil {
			return nil, fmt.Errorf("relational breed lookup: %w", err)
		}
		for _, u := range users {
			if _, skip := excluded[u.ID]; skip {
				continue
			}
			score := search.BreedBonus
			if filters.PetType != "" {
				score += search.TypeBonus
			}
			byID[u.ID] = &merged{score: score, meta: userMetadata(u), relational: true}
		}
	}

	// vector pass
	candidates, err := r.searchUsers(ctx, query, search)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		m, seen := byID[c.ID]
		if !seen {
			m = &merged{meta: c.Metadata}
			byID[c.ID] = m
		}
		m.similarity = c.Similarity
		m.score += c.Similarity * 100

		// vector-only ids never went through the relational query, so the
		// breed/type bonuses are re-derived from the live pet rows
		if !m.relational && !filters.Empty() {
			breedMatch, typeMatch, err := r.store.PetMatch(ctx, c.ID, filters.PetBreed, filters.PetType)
			if err != nil {
				return nil, fmt.Errorf("pet match for user %d: %w", c.ID, err)
			}
			if breedMatch {
				m.score += search.BreedBonus
			}
			if typeMatch {
				m.score += search.TypeBonus
			}
		}
	}

	out := make([]*models.Candidate, 0, len(byID))
	for id, m := range byID {
		out = append(out, &models.Candidate{
			ID:            id,
			Similarity:    m.similarity,
			Metadata:      m.meta,
			PriorityScore: m.score,
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].PriorityScore != out[b].PriorityScore {
			return out[a].PriorityScore > out[b].PriorityScore
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Ranker) searchUsers(ctx context.Context, query string, search config.SearchConfig) ([]*models.Candidate, error) {
	s, err := r.registry.Store(ctx, models.EntityUser)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed user query: %w", err)
	}
	utils.NormalizeL2(vec)
	return s.Search(ctx, vec, search.UserTopK, search.UserMinSimilarity)
}

// SearchArchives runs the filtered disease-archive search: over-fetch from the
// vector store, then drop candidates failing the filters while preserving the
// similarity order, stopping once topK survive. Filters that eliminate
// everything yield an empty list, never an error.
func (r *Ranker) SearchArchives(ctx context.Context, query string, filters models.ArchiveFilters, topK int) ([]*models.Candidate, error) {
	search := r.runtime.Search()
	if topK <= 0 {
		topK = 5
	}
	s, err := r.registry.Store(ctx, models.EntityDiseaseArchive)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed archive query: %w", err)
	}
	utils.NormalizeL2(vec)

	overfetch := search.ArchiveOverfetch
	if overfetch <= 0 {
		overfetch = 3
	}
	candidates, err := s.Search(ctx, vec, topK*overfetch, search.ArchiveMinSimilarity)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Candidate, 0, topK)
	for _, c := range candidates {
		if !matchesArchiveFilters(c, filters) {
			continue
		}
		out = append(out, c)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func matchesArchiveFilters(c *models.Candidate, f models.ArchiveFilters) bool {
	if f.ExcludeOwnerID != 0 && c.Metadata.MetaInt64(models.MetaOwnerID) == f.ExcludeOwnerID {
		return false
	}
	if f.PetType != "" && !strings.EqualFold(c.Metadata.MetaString(models.MetaPetType), f.PetType) {
		return false
	}
	if f.PetBreed != "" {
		breed := strings.ToLower(c.Metadata.MetaString(models.MetaPetBreed))
		if !strings.Contains(breed, strings.ToLower(f.PetBreed)) {
			return false
		}
	}
	return true
}

func userMetadata(u *models.UserProfile) models.Metadata {
	meta := models.Metadata{
		models.MetaNickname: u.Nickname,
		models.MetaCity:     u.City,
	}
	if len(u.Pets) > 0 {
		meta[models.MetaPetType] = u.Pets[0].Type
		meta[models.MetaPetBreed] = u.Pets[0].Breed
	}
	return meta
}
