package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tivoli/internal/api/response"
	"tivoli/internal/imagebytes"
	"tivoli/internal/search"
	"tivoli/internal/tagmutation"
)

// ImageHandler serves the /images/{uuid}* resource group.
type ImageHandler struct {
	search *search.Service
	tags   *tagmutation.Service
	bytes  *imagebytes.Service
}

// NewImageHandler builds an ImageHandler over its three collaborating
// services.
func NewImageHandler(search *search.Service, tags *tagmutation.Service, bytes *imagebytes.Service) *ImageHandler {
	return &ImageHandler{search: search, tags: tags, bytes: bytes}
}

// GetDetail handles GET /images/{uuid}.
func (h *ImageHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	detail, err := h.search.GetImageDetail(r.Context(), uuid)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, detail)
}

// GetFile handles GET /images/{uuid}/file?w=<int>.
func (h *ImageHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	var width *int
	if raw := r.URL.Query().Get("w"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "w must be an integer"})
			return
		}
		width = &parsed
	}

	data, err := h.bytes.GetImageFile(r.Context(), uuid, width)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type replaceTagsRequest struct {
	TagUUIDs []string `json:"tag_uuids"`
}

// ReplaceTags handles PUT /images/{uuid}/tags.
func (h *ImageHandler) ReplaceTags(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	var req replaceTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	if err := h.tags.ReplaceImageTags(r.Context(), uuid, req.TagUUIDs); err != nil {
		response.WriteError(w, err)
		return
	}

	response.WriteNoContent(w)
}
