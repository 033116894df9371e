package handlers

import (
	"net/http"

	"tivoli/internal/api/response"
	"tivoli/internal/search"
)

// CatalogHandler serves the read-only listing endpoints: /collections,
// /galleries, /models, /tags.
type CatalogHandler struct {
	search *search.Service
}

// NewCatalogHandler builds a CatalogHandler over svc.
func NewCatalogHandler(svc *search.Service) *CatalogHandler {
	return &CatalogHandler{search: svc}
}

// ListCollections handles GET /collections.
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	out, err := h.search.ListCollections(r.Context())
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// ListGalleries handles GET /galleries?collection=.
func (h *CatalogHandler) ListGalleries(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	out, err := h.search.ListGalleries(r.Context(), collection)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// ListModels handles GET /models?collection=.
func (h *CatalogHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	out, err := h.search.ListModels(r.Context(), collection)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// ListTags handles GET /tags.
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	out, err := h.search.ListTags(r.Context())
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}
