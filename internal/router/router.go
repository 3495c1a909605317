// Package router dispatches classified queries to the right store(s) and
// returns a uniform result envelope per intent.
package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/config"
	"github.com/pawlink/recall/internal/embedding"
	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/ranking"
	"github.com/pawlink/recall/internal/registry"
	"github.com/pawlink/recall/pkg/utils"
)

// Router maps intents to stores, query text, filters, and thresholds.
type Router struct {
	registry *registry.Registry
	ranker   *ranking.Ranker
	embedder embedding.Embedder
	runtime  *config.Runtime
	logger   *zap.Logger
}

// New creates a router.
func New(reg *registry.Registry, ranker *ranking.Ranker, embedder embedding.Embedder, runtime *config.Runtime, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: reg, ranker: ranker, embedder: embedder, runtime: runtime, logger: logger}
}

// Query validates req and dispatches it by intent. Retrieval failures degrade
// to an empty envelope rather than an error; only an invalid request errors.
func (r *Router) Query(ctx context.Context, req *models.QueryRequest) (*models.Envelope, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		env *models.Envelope
		err error
	)
	switch req.Intent {
	case models.IntentOperation:
		env, err = r.searchStore(ctx, req, models.EntitySystemOperation, "operations", r.runtime.Search().SystemMinSimilarity)
	case models.IntentSystemInquiry:
		env, err = r.searchStore(ctx, req, models.EntitySystemFAQ, "faqs", r.runtime.Search().SystemMinSimilarity)
	case models.IntentTutorial:
		if req.SubType == "" {
			req.SubType = "tutorial"
		}
		env, err = r.searchStore(ctx, req, models.EntitySystemFAQ, "faqs", r.runtime.Search().SystemMinSimilarity)
	case models.IntentFeeding:
		env, err = r.searchStore(ctx, req, models.EntityFeed, "feeds", r.runtime.Search().FeedMinSimilarity)
	case models.IntentHealthConsultation:
		env, err = r.healthConsultation(ctx, req)
	case models.IntentUserRecommendation:
		env, err = r.userRecommendation(ctx, req)
	case models.IntentGeneral:
		return models.EmptyEnvelope(req.Intent, req.SubType), nil
	default:
		return nil, fmt.Errorf("unknown intent: %q", req.Intent)
	}

	if err != nil {
		r.logger.Warn("query degraded to empty result",
			zap.String("intent", req.Intent), zap.Error(err))
		return models.EmptyEnvelope(req.Intent, req.SubType), nil
	}
	return env, nil
}

// searchStore embeds the raw utterance and searches a single store.
func (r *Router) searchStore(ctx context.Context, req *models.QueryRequest, entity, key string, minSimilarity float64) (*models.Envelope, error) {
	s, err := r.registry.Store(ctx, entity)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	utils.NormalizeL2(vec)
	candidates, err := s.Search(ctx, vec, req.Limit, minSimilarity)
	if err != nil {
		return nil, err
	}
	return &models.Envelope{
		Intent:        req.Intent,
		SubType:       req.SubType,
		RetrievedData: map[string]interface{}{key: candidates},
	}, nil
}

// healthConsultation searches disease archives, excluding the asking user's
// own records and constraining by the extracted pet type and breed. A
// structured query built from the entities is tried first; if it filters down
// to nothing, the raw utterance is retried.
func (r *Router) healthConsultation(ctx context.Context, req *models.QueryRequest) (*models.Envelope, error) {
	filters := models.ArchiveFilters{
		ExcludeOwnerID: req.UserID,
		PetType:        req.Entities.PetType,
		PetBreed:       req.Entities.PetBreed,
	}
	candidates, err := r.withRawRetry(req, func(text string) ([]*models.Candidate, error) {
		return r.ranker.SearchArchives(ctx, text, filters, req.Limit)
	})
	if err != nil {
		return nil, err
	}
	return &models.Envelope{
		Intent:        req.Intent,
		SubType:       req.SubType,
		RetrievedData: map[string]interface{}{"archives": candidates},
	}, nil
}

func (r *Router) userRecommendation(ctx context.Context, req *models.QueryRequest) (*models.Envelope, error) {
	candidates, err := r.withRawRetry(req, func(text string) ([]*models.Candidate, error) {
		return r.ranker.RecommendUsers(ctx, req.UserID, text, req.Entities, req.Limit)
	})
	if err != nil {
		return nil, err
	}
	return &models.Envelope{
		Intent:        req.Intent,
		SubType:       req.SubType,
		RetrievedData: map[string]interface{}{"users": candidates},
	}, nil
}

// withRawRetry runs search with the structured entity text when entities were
// extracted, falling back to the raw utterance when the structured query
// returns nothing.
func (r *Router) withRawRetry(req *models.QueryRequest, search func(text string) ([]*models.Candidate, error)) ([]*models.Candidate, error) {
	structured := structuredQuery(req.Entities)
	if structured == "" {
		return search(req.Query)
	}
	candidates, err := search(structured)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates, nil
	}
	r.logger.Debug("structured query empty, retrying with raw utterance",
		zap.String("structured", structured))
	return search(req.Query)
}

// structuredQuery concatenates the extracted entities into embedding text.
// Empty when nothing was extracted.
func structuredQuery(e models.Entities) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.PetType, e.PetBreed, e.Symptom} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
