// Package handlers implements the HTTP handlers behind the Tivoli API
// surface, one file per resource group.
package handlers

import (
	"encoding/json"
	"net/http"

	"tivoli/internal/api/response"
	"tivoli/internal/filterdsl"
	"tivoli/internal/search"
)

// SearchHandler serves /images/search and /images/search/options.
type SearchHandler struct {
	search *search.Service
}

// NewSearchHandler builds a SearchHandler over svc.
func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{search: svc}
}

type searchRequest struct {
	Filters []filterdsl.Clause `json:"filters"`
}

// SearchImages handles POST /images/search.
func (h *SearchHandler) SearchImages(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	rows, err := h.search.SearchImages(r.Context(), req.Filters)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, rows)
}

// SearchOptions handles POST /images/search/options.
func (h *SearchHandler) SearchOptions(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	opts, err := h.search.SearchOptions(r.Context(), req.Filters)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, opts)
}
