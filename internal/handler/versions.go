package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leca/scene-archive/internal/api"
)

// ListVersions handles GET /api/admin/scenes/{scene_id}/versions.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")

	if _, err := h.DB.GetScene(r.Context(), sceneID); err != nil {
		api.WriteError(w, err)
		return
	}
	versions, err := h.DB.ListVersions(r.Context(), sceneID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scene_id": sceneID,
		"versions": versions,
	})
}

// SetStorageKey handles PUT /api/admin/versions/{version_id}/storage-key.
// A null storage_key takes the version offline.
func (h *Handler) SetStorageKey(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "version_id")

	var body struct {
		StorageKey *string `json:"storage_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if body.StorageKey != nil && *body.StorageKey == "" {
		api.UnprocessableEntity(w, "storage_key must be null or non-empty")
		return
	}

	if err := h.DB.SetLiveStorageKey(r.Context(), versionID, body.StorageKey); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version_id":  versionID,
		"storage_key": body.StorageKey,
		"live":        body.StorageKey != nil,
	})
}
