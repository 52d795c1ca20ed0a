package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge-go/internal/assemble"
	"github.com/draftforge/draftforge-go/internal/extract"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/logging"
)

// handleDocumentCreate handles POST /api/documents. It extracts text from
// the uploaded bytes, registers the document, and — for retrieval-mode
// documents — indexes it before responding.
func (s *Server) handleDocumentCreate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req documentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if len(req.Content) == 0 {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text, err := extract.Text(req.Name, req.MIME, req.Content)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	doc := knowledge.Document{
		ID:        uuid.NewString(),
		Name:      req.Name,
		MIME:      req.MIME,
		Text:      text,
		Active:    true,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveDocument(r.Context(), doc); err != nil {
		log.Error("save document failed", slog.Any("error", err))
		http.Error(w, "failed to save document", http.StatusInternalServerError)
		return
	}

	if mode == knowledge.ModeRAG && s.indexer != nil {
		if err := s.indexer.Index(r.Context(), doc); err != nil {
			log.Error("indexing failed", slog.String("document_id", doc.ID), slog.Any("error", err))
			http.Error(w, "document saved but indexing failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		doc.Indexed = true
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// handleDocumentList handles GET /api/documents.
func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list documents failed", slog.Any("error", err))
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDocumentPatch handles PATCH /api/documents/{id}: active and mode
// toggles. Switching a never-indexed document to retrieval mode triggers
// indexing as part of the request.
func (s *Server) handleDocumentPatch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	id := r.PathValue("id")

	var req documentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if errors.Is(err, knowledge.ErrNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("get document failed", slog.Any("error", err))
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}

	if req.Active != nil {
		doc.Active = *req.Active
	}
	if req.Mode != nil {
		mode, err := parseMode(*req.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc.Mode = mode
	}

	if err := s.store.SaveDocument(r.Context(), doc); err != nil {
		log.Error("save document failed", slog.Any("error", err))
		http.Error(w, "failed to save document", http.StatusInternalServerError)
		return
	}

	// First switch to retrieval mode brings the document into the index.
	if doc.Mode == knowledge.ModeRAG && !doc.Indexed && s.indexer != nil {
		if err := s.indexer.Index(r.Context(), doc); err != nil {
			log.Error("indexing failed", slog.String("document_id", doc.ID), slog.Any("error", err))
			http.Error(w, "document updated but indexing failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		doc.Indexed = true
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleDocumentDelete handles DELETE /api/documents/{id}. It purges the
// document's chunk records across all vendors before removing the
// registration. Deleting an unknown ID is a no-op.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.indexer != nil {
		if err := s.indexer.Remove(r.Context(), id); err != nil {
			logging.FromContext(r.Context()).Error("remove document failed",
				slog.String("document_id", id), slog.Any("error", err))
			http.Error(w, "failed to remove document", http.StatusInternalServerError)
			return
		}
	} else if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		http.Error(w, "failed to remove document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		http.Error(w, "model listing not configured", http.StatusNotImplemented)
		return
	}

	models, err := s.models.ListModels(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list models failed", slog.Any("error", err))
		writeProviderError(w, err)
		return
	}

	resp := modelsResponse{Models: make([]modelResponse, 0, len(models))}
	for _, m := range models {
		resp.Models = append(resp.Models, modelResponse{ID: m.ID, DisplayName: m.DisplayName})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDraft handles POST /api/draft: it loads the document set, runs the
// grounded generation, and returns the normalised draft with its sources.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Context == "" && req.Instructions == "" {
		http.Error(w, "context or instructions is required", http.StatusBadRequest)
		return
	}

	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		log.Error("list documents failed", slog.Any("error", err))
		http.Error(w, "failed to load documents", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.DraftTimeout)
	defer cancel()

	s.metrics.draftActive.Inc()
	start := time.Now()
	result, err := s.drafter.Generate(ctx, &assemble.Request{
		Context:      req.Context,
		Persona:      req.Persona,
		Instructions: req.Instructions,
		Format:       assemble.Format(req.Format),
		Model:        req.Model,
		CurrentDraft: req.CurrentDraft,
		Documents:    docs,
	})
	elapsed := time.Since(start)
	s.metrics.draftActive.Dec()

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
	}
	s.metrics.draftRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.draftDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if err != nil {
		log.Error("draft generation failed", slog.Any("error", err))
		writeProviderError(w, err)
		return
	}

	resp := draftResponse{Text: result.Text}
	for _, src := range result.Sources {
		resp.Sources = append(resp.Sources, sourceResponse{Title: src.Title, URL: src.URL})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseMode validates a mode string from the API. Empty defaults to
// context mode.
func parseMode(s string) (knowledge.Mode, error) {
	switch knowledge.Mode(s) {
	case "":
		return knowledge.ModeContext, nil
	case knowledge.ModeContext:
		return knowledge.ModeContext, nil
	case knowledge.ModeRAG:
		return knowledge.ModeRAG, nil
	default:
		return "", errors.New("mode must be \"context\" or \"rag\"")
	}
}

// toDocumentResponse maps a stored document onto its API representation.
func toDocumentResponse(d knowledge.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		Name:      d.Name,
		MIME:      d.MIME,
		Mode:      string(d.Mode),
		Active:    d.Active,
		Indexed:   d.Indexed,
		Chars:     len(d.Text),
		CreatedAt: d.CreatedAt,
	}
}
