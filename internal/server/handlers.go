package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veltaworks/docintel/internal/config"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/ingest"
	"github.com/veltaworks/docintel/internal/registry"
	"github.com/veltaworks/docintel/internal/search"
)

// ingestRequest is the JSON body for the ingest endpoint.
type ingestRequest struct {
	Documents []ingest.DocumentInput `json:"documents"`
	Policy    string                 `json:"policy,omitempty"`
}

// ingestResponse returns one result per submitted document.
type ingestResponse struct {
	Results []ingest.IngestionResult `json:"results"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents submitted")
		return
	}
	if req.Policy == "" {
		req.Policy = "skip"
	}

	results, err := s.pipeline.Run(r.Context(), req.Documents, req.Policy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Results: results})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results, err := s.search.Search(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	f := docstore.Filters{
		ProjectRef:   r.URL.Query().Get("project_ref"),
		DocumentType: docstore.DocumentType(r.URL.Query().Get("document_type")),
	}
	if f.DocumentType != "" && !docstore.ValidType(f.DocumentType) {
		writeError(w, http.StatusBadRequest, "unknown document type "+string(f.DocumentType))
		return
	}
	var err error
	if f.CreatedAfter, err = parseTimeParam(r, "created_after"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.CreatedBefore, err = parseTimeParam(r, "created_before"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.analytics.Overview(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.registry.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if projects == nil {
		projects = []*registry.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleImportProjects(w http.ResponseWriter, r *http.Request) {
	var seeds []registry.Seed
	if err := json.NewDecoder(r.Body).Decode(&seeds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	n, err := s.registry.ImportSeeds(r.Context(), seeds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be RFC 3339")
	}
	return t, nil
}

// writeServiceError maps caller mistakes to 400 and everything else to 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var serr *search.SearchError
	var cerr *config.ConfigurationError
	if errors.As(err, &serr) || errors.As(err, &cerr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
