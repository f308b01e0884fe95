package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
	"github.com/selfcaststudios/sitecast/internal/site"
	"github.com/selfcaststudios/sitecast/internal/version"
)

const maxBodyBytes = 4 << 20

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(context.Background(), err, "encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "request failed",
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
		)
	}
	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func (s *Server) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "sitecast",
		"version": version.Version,
		"endpoints": []string{
			"GET /api/projects",
			"GET /api/projects/{projectId}",
			"GET /api/projects/{projectId}/content",
			"POST /api/projects",
			"POST /api/projects/{projectId}/content",
			"PUT /api/projects/{projectId}",
			"POST /api/projects/{projectId}/generate-site",
			"GET /sites/{projectId}/",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ids, err := s.observeList(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	projects := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		projects = append(projects, map[string]string{"projectId": id})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"projects": projects,
	})
}

func (s *Server) observeList(r *http.Request) ([]string, error) {
	start := time.Now()
	ids, err := s.store.ListProjectIDs(r.Context())
	s.metrics.ObserveStoreOperation("list_projects", time.Since(start), err)
	return ids, err
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	start := time.Now()
	project, err := s.store.GetProject(r.Context(), projectID)
	s.metrics.ObserveStoreOperation("get_project", time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"project_id": project.ProjectID,
		"content":    project.Content,
	})
}

// handleGetContent serves the shape the legacy editor script consumes:
// a bare array with project_id stamped on each item, and an empty array
// rather than a 404 when the project does not exist.
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	start := time.Now()
	project, err := s.store.GetProject(r.Context(), projectID)
	s.metrics.ObserveStoreOperation("get_project", time.Since(start), err)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			s.writeJSON(w, http.StatusOK, []interface{}{})
			return
		}
		s.writeError(w, r, err)
		return
	}

	type legacyItem struct {
		ProjectID string `json:"project_id"`
		Key       string `json:"key"`
		Value     string `json:"value"`
	}
	items := make([]legacyItem, 0, len(project.Content))
	for _, item := range project.Content {
		items = append(items, legacyItem{ProjectID: projectID, Key: item.Key, Value: item.Value})
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID string                `json:"projectId"`
		Content   []content.ContentItem `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.ProjectID == "" {
		s.writeError(w, r, errors.Validation("missing_project_id", "projectId is required"))
		return
	}
	if err := site.ValidateProjectID(body.ProjectID); err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	project, err := s.store.CreateProject(r.Context(), body.ProjectID, body.Content)
	s.metrics.ObserveStoreOperation("create_project", time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"project_id": project.ProjectID,
		"content":    project.Content,
	})
}

// handleUpsertContent is the legacy editor write path: a bare array of
// {key, value} items upserted per key.
func (s *Server) handleUpsertContent(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := site.ValidateProjectID(projectID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var items []content.ContentItem
	if err := decodeBody(r, &items); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(items) == 0 {
		s.writeError(w, r, errors.Validation("empty_content", "content array must not be empty"))
		return
	}

	start := time.Now()
	updated, err := s.store.UpsertContent(r.Context(), projectID, items)
	s.metrics.ObserveStoreOperation("upsert_content", time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"updated": updated,
	})
}

// handleUpdateProject accepts the three historical body shapes -- a
// bare array, {content: [...]}, or a single {key, value} -- upserts the
// items and regenerates the site synchronously. Persistence failures
// fail the request; generation failures surface as generation_error
// alongside the successful write.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := site.ValidateProjectID(projectID); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Validation("body_read", "reading request body").WithCause(err))
		return
	}

	items, err := parseFlexibleContent(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	updated, err := s.store.UpsertContent(r.Context(), projectID, items)
	s.metrics.ObserveStoreOperation("upsert_content", time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"success":    true,
		"project_id": projectID,
		"updated":    updated,
	}

	genStart := time.Now()
	result, genErr := s.assembler.Generate(r.Context(), projectID)
	if genErr != nil {
		s.metrics.ObserveGeneration(time.Since(genStart), 0, genErr)
		s.logger.Error(r.Context(), genErr, "generation after update failed", "project_id", projectID)
		response["generation_error"] = genErr.Error()
	} else {
		s.metrics.ObserveGeneration(time.Since(genStart), result.Anomalies, nil)
		response["site_url"] = result.SiteURL
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGenerateSite(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	start := time.Now()
	result, err := s.assembler.Generate(r.Context(), projectID)
	if err != nil {
		s.metrics.ObserveGeneration(time.Since(start), 0, err)
		s.writeError(w, r, err)
		return
	}
	s.metrics.ObserveGeneration(time.Since(start), result.Anomalies, nil)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"url":     result.SiteURL,
	})
}

func decodeBody(r *http.Request, into interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(into); err != nil {
		return errors.Validation("invalid_body", "request body is not valid JSON").WithCause(err)
	}
	return nil
}

// parseFlexibleContent normalizes the update body shapes into a flat
// item list.
func parseFlexibleContent(raw []byte) ([]content.ContentItem, error) {
	var asArray []content.ContentItem
	if err := json.Unmarshal(raw, &asArray); err == nil {
		if len(asArray) == 0 {
			return nil, errors.Validation("empty_content", "content array must not be empty")
		}
		return asArray, nil
	}

	var asWrapper struct {
		Content []content.ContentItem `json:"content"`
		Key     string                `json:"key"`
		Value   string                `json:"value"`
	}
	if err := json.Unmarshal(raw, &asWrapper); err != nil {
		return nil, errors.Validation("invalid_body", "request body is not valid JSON").WithCause(err)
	}
	if len(asWrapper.Content) > 0 {
		return asWrapper.Content, nil
	}
	if asWrapper.Key != "" {
		return []content.ContentItem{{Key: asWrapper.Key, Value: asWrapper.Value}}, nil
	}
	return nil, errors.Validation("empty_content", "expected a content array or a key/value pair")
}
