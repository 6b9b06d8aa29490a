package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/phoneadvisor/internal/storage"
)

type searchRecord struct {
	ID          string          `json:"id"`
	CreatedAt   string          `json:"created_at"`
	SessionID   string          `json:"session_id,omitempty"`
	Mode        string          `json:"mode"`
	Query       string          `json:"query"`
	Constraints json.RawMessage `json:"constraints"`
	ResultCount int             `json:"result_count"`
}

func toSearchRecord(s storage.Search) searchRecord {
	constraints := json.RawMessage(s.ConstraintsJSON)
	if !json.Valid(constraints) {
		constraints = json.RawMessage("{}")
	}
	return searchRecord{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		SessionID:   s.SessionID,
		Mode:        s.Mode,
		Query:       s.Query,
		Constraints: constraints,
		ResultCount: s.ResultCount,
	}
}

func handleListSearches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		searches, err := deps.Store.ListSearches(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list searches: %v", err)
			return
		}

		records := make([]searchRecord, len(searches))
		for i, s := range searches {
			records[i] = toSearchRecord(s)
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Store.GetSearch(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "search not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get search: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toSearchRecord(s))
	}
}

func handleDeleteSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteSearch(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "search not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete search: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
