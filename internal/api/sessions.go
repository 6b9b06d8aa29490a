package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/phoneadvisor/internal/dialogue"
	"github.com/kalambet/phoneadvisor/internal/filter"
	"github.com/kalambet/phoneadvisor/internal/session"
)

type messageRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	SessionID    string             `json:"session_id"`
	Reply        string             `json:"reply"`
	Phase        dialogue.Phase     `json:"phase"`
	ShouldSearch bool               `json:"should_search"`
	Constraints  filter.Constraints `json:"constraints,omitempty"`
	Results      []PhoneCard        `json:"results,omitempty"`
	SearchID     string             `json:"search_id,omitempty"`
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := deps.Sessions.Create()
		snap, err := deps.Sessions.Snapshot(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read new session: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := deps.Sessions.Snapshot(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleSendMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		id := chi.URLParam(r, "id")
		turn, err := deps.Sessions.Send(r.Context(), id, req.Text)
		if err != nil {
			sessionError(w, err)
			return
		}

		resp := turnResponse{
			SessionID:    id,
			Reply:        turn.Reply,
			Phase:        turn.Phase,
			ShouldSearch: turn.ShouldSearch,
			Constraints:  turn.Constraints,
			SearchID:     turn.SearchID,
		}
		if turn.ShouldSearch {
			resp.Results = cards(r.Context(), deps.Images, turn.Results)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleResetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.Sessions.Reset(id); err != nil {
			sessionError(w, err)
			return
		}
		snap, err := deps.Sessions.Snapshot(id)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
}
