package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/vector"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request",
		zap.String("intent", req.Intent), zap.String("query", req.Query))
	env, err := s.router.Query(r.Context(), &req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, env)
}

type addItemRequest struct {
	ID       int64           `json:"id"`
	Text     string          `json:"text"`
	Metadata models.Metadata `json:"metadata,omitempty"`
	Upsert   bool            `json:"upsert,omitempty"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if !models.ValidEntity(entity) {
		s.respondError(w, http.StatusNotFound, "unknown entity type")
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID <= 0 || req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "id and text are required")
		return
	}

	var err error
	if req.Upsert {
		err = s.registry.UpsertItem(r.Context(), entity, req.ID, req.Text, req.Metadata)
	} else {
		err = s.registry.AddItem(r.Context(), entity, req.ID, req.Text, req.Metadata)
	}
	if err != nil {
		if errors.Is(err, vector.ErrDuplicateID) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("add item failed", zap.String("entity", entity), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"id": req.ID, "status": "indexed"})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if !models.ValidEntity(entity) {
		s.respondError(w, http.StatusNotFound, "unknown entity type")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.registry.DeleteItem(r.Context(), entity, id); err != nil {
		s.logger.Error("delete item failed", zap.String("entity", entity), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type rebuildJob struct {
	ID         string     `json:"id"`
	Entity     string     `json:"entity"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// handleRebuild kicks off a full index rebuild in the background and returns a
// job id the caller can poll.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if !models.ValidEntity(entity) {
		s.respondError(w, http.StatusNotFound, "unknown entity type")
		return
	}
	job := &rebuildJob{
		ID:        uuid.NewString(),
		Entity:    entity,
		Status:    "running",
		StartedAt: time.Now(),
	}
	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		err := s.registry.Rebuild(ctx, entity)

		s.jobsMu.Lock()
		now := time.Now()
		job.FinishedAt = &now
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
		} else {
			job.Status = "done"
		}
		s.jobsMu.Unlock()
		if err != nil {
			s.logger.Error("rebuild failed", zap.String("entity", entity), zap.Error(err))
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": "started"})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	var snapshot rebuildJob
	if ok {
		snapshot = *job
	}
	s.jobsMu.Unlock()
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, &snapshot)
}

func (s *Server) handleFAQKeywordSearch(w http.ResponseWriter, r *http.Request) {
	if s.faqIndex == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	hits, err := s.faqIndex.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("faq keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": hits})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stores := map[string]interface{}{}
	for entity, store := range s.registry.LoadedStores() {
		info := map[string]interface{}{
			"records":   store.Len(),
			"dimension": store.Dim(),
		}
		if saved := store.SavedAt(); !saved.IsZero() {
			info["saved_at"] = saved
		}
		stores[entity] = info
	}
	resp := map[string]interface{}{
		"entities": s.registry.Entities(),
		"stores":   stores,
		"config": map[string]interface{}{
			"embedding_provider":   s.cfg.Embedding.Provider,
			"embedding_dimensions": s.cfg.Embedding.Dimensions,
			"index_dir":            s.cfg.Storage.IndexDir,
			"database_path":        s.cfg.Storage.DatabasePath,
		},
	}
	if s.faqIndex != nil {
		if count, err := s.faqIndex.DocCount(); err == nil {
			resp["faq_keyword_docs"] = count
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
