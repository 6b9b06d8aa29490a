// Package api exposes the phone advisor over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/filter"
	"github.com/kalambet/phoneadvisor/internal/session"
	"github.com/kalambet/phoneadvisor/internal/storage"
)

const maxRequestBodySize = 64 << 10 // 64KB

// ImageResolver finds pictures for result cards. Implemented by
// imagelookup.Client.
type ImageResolver interface {
	Lookup(ctx context.Context, name string) string
	LookupAll(ctx context.Context, rows []catalog.Row) []string
}

// Deps holds the dependencies of the HTTP API.
type Deps struct {
	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Store    *storage.Store // optional; if nil, /searches is not served
	Images   ImageResolver  // optional; if nil, cards carry no image
	Token    string         // optional; if set, every route except /health requires it
}

// NewHandler returns the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/catalog/brands", handleBrands(deps))
		r.Post("/search", handleSearch(deps))
		r.Get("/images", handleImage(deps))

		r.Post("/sessions", handleCreateSession(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Post("/sessions/{id}/messages", handleSendMessage(deps))
		r.Post("/sessions/{id}/reset", handleResetSession(deps))
		r.Delete("/sessions/{id}", handleDeleteSession(deps))

		if deps.Store != nil {
			r.Get("/searches", handleListSearches(deps))
			r.Get("/searches/{id}", handleGetSearch(deps))
			r.Delete("/searches/{id}", handleDeleteSearch(deps))
		}
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"phones":   deps.Catalog.Len(),
			"sessions": deps.Sessions.Count(),
		})
	}
}

func handleBrands(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"brands": brandNames(deps.Catalog)})
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// PhoneCard is a result row as shown to a user.
type PhoneCard struct {
	catalog.Row
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type searchResponse struct {
	Query       string             `json:"query"`
	Constraints filter.Constraints `json:"constraints"`
	Summary     []string           `json:"summary"`
	Count       int                `json:"count"`
	Results     []PhoneCard        `json:"results"`
	SearchID    string             `json:"search_id,omitempty"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Sessions.DirectSearch(r.Context(), req.Query)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "search aborted: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, searchResponse{
			Query:       res.Query,
			Constraints: res.Constraints,
			Summary:     nonNil(res.Summary),
			Count:       len(res.Results),
			Results:     cards(r.Context(), deps.Images, res.Results),
			SearchID:    res.SearchID,
		})
	}
}

func handleImage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if deps.Images == nil {
			httpError(w, http.StatusNotFound, "not_found", "image lookup is disabled")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"name": name,
			"url":  deps.Images.Lookup(r.Context(), name),
		})
	}
}

// cards converts rows to PhoneCards, resolving images when a resolver is set.
func cards(ctx context.Context, images ImageResolver, rows []catalog.Row) []PhoneCard {
	out := make([]PhoneCard, len(rows))
	var urls []string
	if images != nil {
		urls = images.LookupAll(ctx, rows)
	}
	for i, row := range rows {
		out[i] = PhoneCard{Row: row, Name: row.Name()}
		if urls != nil {
			out[i].Image = urls[i]
		}
	}
	return out
}

func brandNames(c *catalog.Catalog) []string {
	brands := c.Brands()
	for i, b := range brands {
		brands[i] = filter.Capitalize(b)
	}
	return brands
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
