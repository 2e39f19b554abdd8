package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lectern-ai/lectern/internal/api"
	"github.com/lectern-ai/lectern/internal/service"
)

type AssistantService interface {
	Answer(ctx context.Context, query, sessionID string) (*service.AnswerOutput, error)
	ClearSession(sessionID string) error
}

type QueryHandler struct {
	svc AssistantService
}

func NewQueryHandler(svc AssistantService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type SourceResponse struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

type QueryResponse struct {
	Answer    string           `json:"answer"`
	Sources   []SourceResponse `json:"sources"`
	SessionID string           `json:"session_id"`
}

// Answer handles POST /api/query.
func (h *QueryHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	out, err := h.svc.Answer(r.Context(), req.Query, req.SessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toQueryResponse(out))
}

// ClearSession handles DELETE /api/sessions/{id}.
func (h *QueryHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	if err := h.svc.ClearSession(sessionID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func toQueryResponse(out *service.AnswerOutput) *QueryResponse {
	sources := make([]SourceResponse, 0, len(out.Sources))
	for _, s := range out.Sources {
		sources = append(sources, SourceResponse{
			Label: s.Label(),
			Link:  s.Link,
		})
	}
	return &QueryResponse{
		Answer:    out.Answer,
		Sources:   sources,
		SessionID: out.SessionID,
	}
}
